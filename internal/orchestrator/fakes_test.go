package orchestrator

import (
	"context"
	"errors"

	"github.com/fyrsmithlabs/contextd/internal/llm"
)

// fakeClient replays a scripted sequence of responses, one per Complete
// call, mirroring the teacher's pattern of scripted fakes over mocks for
// simple sequential interactions.
type fakeClient struct {
	responses []llm.Response
	errAt     map[int]error
	calls     int
	requests  []llm.CompleteRequest
}

func (f *fakeClient) Complete(ctx context.Context, req llm.CompleteRequest) (*llm.Response, error) {
	f.requests = append(f.requests, req)
	i := f.calls
	f.calls++
	if err, ok := f.errAt[i]; ok {
		return nil, err
	}
	if i >= len(f.responses) {
		return nil, errors.New("fakeClient: no scripted response for call")
	}
	resp := f.responses[i]
	return &resp, nil
}
