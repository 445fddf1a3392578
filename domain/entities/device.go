package entities

import "fmt"

// AudioDevice represents an audio device reported by the capture backend
type AudioDevice struct {
	Index             int    `json:"id"`
	Name              string `json:"-"`
	MaxInputChannels  int    `json:"max_input_channels"`
	MaxOutputChannels int    `json:"max_output_channels"`
	IsDefault         bool   `json:"is_default"`
}

// Label renders the device the way the device picker lists it
func (d AudioDevice) Label() string {
	return fmt.Sprintf("%d: %s (%d in, %d out)", d.Index, d.Name, d.MaxInputChannels, d.MaxOutputChannels)
}

// CanCapture reports whether the device has any input channel
func (d AudioDevice) CanCapture() bool {
	return d.MaxInputChannels > 0
}
