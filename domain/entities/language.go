package entities

// Language names used when prompting a model, written the way the prompt reads.
var languageNames = map[string]string{
	"ko": "한국어",
	"en": "영어",
	"ja": "일본어",
	"zh": "중국어",
}

// SourceLanguageName returns the prompt name for a source language, falling back to English
func SourceLanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return languageNames["en"]
}

// TargetLanguageName returns the prompt name for a target language, falling back to Korean
func TargetLanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return languageNames["ko"]
}

// IsSupportedLanguage reports whether a language code has a prompt name
func IsSupportedLanguage(code string) bool {
	_, ok := languageNames[code]
	return ok
}
