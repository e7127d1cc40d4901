package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/crewkit/crewkit-go/crewkit"
)

// BedrockCaller is an adapter for Amazon Bedrock foundation models via the
// Converse API.
//
// Credentials resolve through the standard AWS chain (environment, shared
// profile, IAM role). The model id supplied per call is the Bedrock model
// identifier, e.g. "anthropic.claude-sonnet-4-20250514-v1:0".
//
// Example:
//
//	caller, err := llm.NewBedrockCaller(ctx, llm.BedrockConfig{Region: "us-west-2"})
//	completion, err := caller.Complete(ctx, modelID, messages, 0.7, 1024)
type BedrockCaller struct {
	client *bedrockruntime.Client
}

// BedrockConfig configures the Bedrock adapter.
type BedrockConfig struct {
	// Region is the AWS region (default us-east-1).
	Region string

	// Profile is an optional shared-config profile name.
	Profile string
}

// NewBedrockCaller creates a Bedrock adapter, loading AWS configuration
// from the standard credential chain.
func NewBedrockCaller(ctx context.Context, cfg BedrockConfig) (*BedrockCaller, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return &BedrockCaller{client: bedrockruntime.NewFromConfig(awsCfg)}, nil
}

// Complete sends one Converse request and reports text, usage, and latency.
func (b *BedrockCaller) Complete(ctx context.Context, modelID string, messages []crewkit.Message, temperature float64, maxTokens int) (*Completion, error) {
	var bedrockMessages []types.Message
	var system []types.SystemContentBlock

	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, &types.SystemContentBlockMemberText{Value: m.Content})
			continue
		}
		role := types.ConversationRoleUser
		if m.Role == "assistant" {
			role = types.ConversationRoleAssistant
		}
		bedrockMessages = append(bedrockMessages, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
		})
	}

	inference := &types.InferenceConfiguration{
		Temperature: aws.Float32(float32(temperature)),
	}
	if maxTokens > 0 {
		inference.MaxTokens = aws.Int32(int32(maxTokens))
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:         aws.String(modelID),
		Messages:        bedrockMessages,
		InferenceConfig: inference,
	}
	if len(system) > 0 {
		input.System = system
	}

	start := time.Now()
	output, err := b.client.Converse(ctx, input)
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("bedrock api error: %w", err)
	}

	var text string
	if msg, ok := output.Output.(*types.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			if textBlock, ok := block.(*types.ContentBlockMemberText); ok {
				text += textBlock.Value
			}
		}
	}

	var usage Usage
	if output.Usage != nil {
		usage.PromptTokens = int(aws.ToInt32(output.Usage.InputTokens))
		usage.CompletionTokens = int(aws.ToInt32(output.Usage.OutputTokens))
	}

	return &Completion{Text: text, Usage: usage, Latency: latency}, nil
}
