package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	llmprovider "github.com/haowjy/meridian-llm-go"

	"vowcraft/internal/domain"
	invitationSvc "vowcraft/internal/domain/services/invitation"
)

// Completer is the part of an llmprovider.Provider the generators need.
type Completer interface {
	GenerateResponse(ctx context.Context, req *llmprovider.GenerateRequest) (*llmprovider.GenerateResponse, error)
}

const patchSystemPrompt = `You edit wedding invitation documents. Reply with a single JSON object and nothing else:
{"ops": [ ... ]}
Each op is a JSON Patch operation (add, remove, replace, move, copy, test) with "op", "path" and,
where required, "value" or "from".
Paths address blocks by id, never by index: /blocks/{blockId}/{field}. Use /blocks/- to append a new
block and /blocks/{anchorId} as an add target to insert before that block. New blocks need "id",
"type", "visible" and "content". Other roots are /title, /wedding/... and /style/....
Never change a block's id or type. If a scope is given, only touch blocks in that scope.
If the instruction needs no change, reply {"ops": []}.`

type patchGenerator struct {
	completer Completer
	model     string
	logger    *slog.Logger
}

// NewPatchGenerator creates a PatchGenerator backed by an LLM provider.
func NewPatchGenerator(completer Completer, model string, logger *slog.Logger) invitationSvc.PatchGenerator {
	return &patchGenerator{completer: completer, model: model, logger: logger}
}

func (g *patchGenerator) Generate(ctx context.Context, req *invitationSvc.GenerateRequest) (*invitationSvc.Generation, error) {
	var user strings.Builder
	user.WriteString("Document:\n")
	user.WriteString(req.Context)
	if len(req.Scope) > 0 {
		user.WriteString("\n\nScope (block ids): ")
		user.WriteString(strings.Join(req.Scope, ", "))
	}
	user.WriteString("\n\nInstruction:\n")
	user.WriteString(req.Prompt)

	resp, err := g.complete(ctx, patchSystemPrompt, user.String())
	if err != nil {
		return nil, err
	}
	g.logger.Debug("patch generated",
		"model", resp.Model,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
		"stop_reason", resp.StopReason,
	)
	return &resp.Generation, nil
}

type completion struct {
	invitationSvc.Generation
	StopReason string
}

func (g *patchGenerator) complete(ctx context.Context, system, user string) (*completion, error) {
	return complete(ctx, g.completer, g.model, system, user)
}

// complete sends one system + user exchange and concatenates the text blocks of the reply.
func complete(ctx context.Context, completer Completer, model, system, user string) (*completion, error) {
	text := user
	resp, err := completer.GenerateResponse(ctx, &llmprovider.GenerateRequest{
		Model: model,
		Messages: []llmprovider.Message{{
			Role: "user",
			Blocks: []*llmprovider.Block{{
				BlockType:   "text",
				Sequence:    0,
				TextContent: &text,
			}},
		}},
		Params: &llmprovider.RequestParams{System: &system},
	})
	if err != nil {
		return nil, &domain.ExternalServiceError{Service: "model", Err: err}
	}
	if resp == nil {
		return nil, &domain.ExternalServiceError{Service: "model", Err: errors.New("empty response")}
	}

	var raw strings.Builder
	for _, block := range resp.Blocks {
		if block == nil || block.BlockType != "text" || block.TextContent == nil {
			continue
		}
		raw.WriteString(*block.TextContent)
	}
	if strings.TrimSpace(raw.String()) == "" {
		return nil, &domain.ExternalServiceError{Service: "model", Err: fmt.Errorf("no text in response (stop reason %q)", resp.StopReason)}
	}

	out := &completion{StopReason: resp.StopReason}
	out.Raw = raw.String()
	out.Model = resp.Model
	if out.Model == "" {
		out.Model = model
	}
	out.InputTokens = resp.InputTokens
	out.OutputTokens = resp.OutputTokens
	return out, nil
}
