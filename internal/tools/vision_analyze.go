package tools

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/contextd/internal/llm"
)

// NewVisionAnalyzeTool delegates image analysis to a vision-capable model
// client. model is the provider's vision model name (e.g. a Claude model
// with image support); client is typically the same llm.Client the
// orchestrator's Pro/DeepThink tiers already use.
//
// TODO: wire a dedicated image content block once internal/llm grows
// multimodal Message support; image_ref is passed as a text reference
// today rather than inline image bytes.
func NewVisionAnalyzeTool(client llm.Client, model string) *Tool {
	return &Tool{
		Name:        "vision_analyze",
		Description: "Analyze an image (e.g. a scanned document or photo) and answer a question about it.",
		InputSchema: map[string]interface{}{
			"image_ref": map[string]interface{}{
				"type":        "string",
				"description": "A URL or reference identifying the image to analyze.",
			},
			"prompt": map[string]interface{}{
				"type":        "string",
				"description": "What to look for or answer about the image.",
			},
		},
		Required: []string{"image_ref", "prompt"},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			imageRef, _ := args["image_ref"].(string)
			prompt, _ := args["prompt"].(string)

			resp, err := client.Complete(ctx, llm.CompleteRequest{
				Model:     model,
				MaxTokens: 1024,
				Messages: []llm.Message{
					{
						Role:    llm.RoleUser,
						Content: fmt.Sprintf("Image reference: %s\n\n%s", imageRef, prompt),
					},
				},
			})
			if err != nil {
				return nil, fmt.Errorf("vision_analyze: %w", err)
			}
			return map[string]interface{}{"analysis": resp.Content}, nil
		},
	}
}
