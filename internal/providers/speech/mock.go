package speech

import "context"

// mockWords are the canned recognition results used during development.
var mockWords = []string{
	"小猫咪",
	"小狗狗",
	"小兔子",
	"小鸟儿",
	"小鱼儿",
	"小花朵",
	"小房子",
	"小汽车",
	"小太阳",
	"小月亮",
}

// MockRecognizer returns a deterministic canned result derived from the audio
// payload size. It is only selectable when mock providers are explicitly
// allowed by configuration.
type MockRecognizer struct{}

// NewMockRecognizer constructs the development recogniser.
func NewMockRecognizer() *MockRecognizer {
	return &MockRecognizer{}
}

// Name identifies the provider in results and logs.
func (m *MockRecognizer) Name() string { return "mock" }

// Recognize picks a word based on the payload length so the same audio always
// maps to the same text, matching real-provider cache behaviour.
func (m *MockRecognizer) Recognize(_ context.Context, audio []byte) (string, error) {
	return mockWords[len(audio)%len(mockWords)], nil
}
