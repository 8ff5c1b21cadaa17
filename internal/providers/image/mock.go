package image

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	apperrors "github.com/minzhou/babydraw/pkg/errors"
)

const mockImageBase = "https://picsum.photos/seed"

// MockGenerator produces deterministic placeholder image URLs without any
// network traffic. Tasks complete on the first poll. Only selectable when
// mock providers are explicitly allowed by configuration.
type MockGenerator struct{}

// NewMockGenerator constructs the development generator.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Name identifies the provider in results and logs.
func (g *MockGenerator) Name() string { return "mock" }

// Submit derives the task id from the prompt so identical prompts yield
// identical placeholder images.
func (g *MockGenerator) Submit(_ context.Context, prompt string) (string, error) {
	h := fnv.New32a()
	h.Write([]byte(prompt))
	return fmt.Sprintf("mock-%d", h.Sum32()%1000), nil
}

// Poll reports immediate success with a URL seeded by the task id.
func (g *MockGenerator) Poll(_ context.Context, taskID string) (PollResult, error) {
	seed := strings.TrimPrefix(taskID, "mock-")
	if seed == taskID {
		return PollResult{}, apperrors.NewProviderFailure(g.Name(), fmt.Errorf("unknown task %q", taskID))
	}
	return PollResult{
		Status:   StatusSucceeded,
		ImageURL: fmt.Sprintf("%s/%s/400/400", mockImageBase, seed),
	}, nil
}
