package summary

import "strings"

// Template is the document shape a summary is written in
type Template int

const (
	TemplateArchitecture Template = iota
	TemplateTechnicalBriefing
	TemplateFAQ
	TemplateComparison
)

// DefaultTemplate is used whenever classification gives no usable answer.
const DefaultTemplate = TemplateArchitecture

var templateNames = map[Template]string{
	TemplateArchitecture:      "architecture",
	TemplateTechnicalBriefing: "technical_briefing",
	TemplateFAQ:               "faq",
	TemplateComparison:        "comparison",
}

var templatePrompts = map[Template]string{
	TemplateArchitecture: `너는 **소프트웨어 아키텍처 전문가**야. 아래 트랜스크립트를 보고
1) 주요 개념을 4개의 소제목으로 나누고,
2) 각 소제목마다 **핵심 메시지**를 1문장으로 요약하고,
3) **용어 정의**(필요 시)와 **추가 참고 링크**(가능한 경우 간략 URL) 를 덧붙여줘.
출력은 Markdown 형식으로 작성해.`,

	TemplateTechnicalBriefing: `너는 **시니어 엔지니어 대상 기술 브리핑어**야. 아래 스크립트를 참고해
- 1단계: 주요 모듈/컴포넌트 식별 및 정의
- 2단계: 각 모듈의 동작 원리 2~3문장 설명
- 3단계: 실제 운영 시 고려할 **주의사항** 3개
- 4단계: 다음 스텝(추가 학습/테스트) 권장 사항
순서대로 정리해줘. 불필요한 내용은 생략하고, "확실치 않은 부분"은 **[확실치 않음]** 태그로 표시.`,

	TemplateFAQ: `너는 **내부 기술 문서 작성자**야. 이 트랜스크립트를 바탕으로
- 자주 묻는 질문(FAQ) 형태로 5문항을 만들고,
- 각 질문 뒤에 **간결한 답변**(2~3문장) 작성,
- 추가 심화 학습 리소스(예: 공식 문서 URL) 제안
형식:
Q1. …
A1. …`,

	TemplateComparison: `너는 **기술 리뷰어**야. 아래 동영상 스크립트에서 다룬 **A vs B** 기술(또는 프레임워크) 특징을
| 항목 | A 특징 | B 특징 | 비고 |
|------|--------|--------|------|
형태의 표로 5개 항목 비교 정리해줘.
"비고" 칸에는 사용 시 유의점이나 성능 차이 짧게 기재.`,
}

// String returns the template's wire name
func (t Template) String() string {
	if name, ok := templateNames[t]; ok {
		return name
	}
	return templateNames[DefaultTemplate]
}

// Prompt returns the instruction that shapes a summary in this template
func (t Template) Prompt() string {
	if prompt, ok := templatePrompts[t]; ok {
		return prompt
	}
	return templatePrompts[DefaultTemplate]
}

// parseTemplate resolves a wire name back to a template
func parseTemplate(name string) (Template, bool) {
	for template, templateName := range templateNames {
		if templateName == name {
			return template, true
		}
	}
	return DefaultTemplate, false
}

// SelectTemplate reads a "template_name: reason" classification. Only the text
// before the first colon is considered; anything unrecognised selects the default.
func SelectTemplate(response string) Template {
	label, _, _ := strings.Cut(response, ":")
	label = strings.ToLower(strings.TrimSpace(label))

	switch {
	case strings.Contains(label, "architecture"):
		return TemplateArchitecture
	case strings.Contains(label, "briefing"):
		return TemplateTechnicalBriefing
	case strings.Contains(label, "faq"):
		return TemplateFAQ
	case strings.Contains(label, "comparison"):
		return TemplateComparison
	default:
		return DefaultTemplate
	}
}
