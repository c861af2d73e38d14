// Package enhance rewrites user prompts with retrieved methodologies.
//
// The enhancer renders the retrieved records into a numbered block,
// preserving retrieval order, and asks the model to produce a stronger
// prompt built on them. With zero retrieved records the model is told to
// fall back on its own knowledge.
package enhance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dulicode/better-prompts/internal/knowledge"
)

// Completer produces a chat completion from a system and user prompt.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// systemPrompt sets the prompt-engineer persona and the framework the
// rewritten prompt should follow.
const systemPrompt = `Act as a prompt engineer. Using the requirement, the related methodologies and the examples I provide next, create a prompt that satisfies the requirement.
## How to work
1. Analyze the requirement: understand or infer its background and goal and describe them in the prompt in as much detail as possible, but never invent information the requirement does not contain.
2. Pick methodologies: I will provide 0-3 methodologies related to the user's requirement. Choose one of them or combine several into the prompt. If the material that follows contains no methodology, draw on your own knowledge and pick a suitable theory to strengthen the prompt.
## Prompt framework
Follow this framework when creating the prompt:
` + "````" + `
# Role:
Define a role for the AI so it turns from a generic "assistant" into a focused specialist for this specific job; a profession name works well.
## Task:
Describe the task background to the AI in as much detail as possible and state the goal clearly; if the user input carries no explicit goal, derive one from the available information.
## Approach:
Guide the model with a proven methodology for this task so it works the way you expect. A few tips:
1) Spelling out the steps and asking the AI to report intermediate results works very well.
2) The methodology should include both the theory and the concrete operating details.
3) If examples exist, keep them.
## Output requirements:
List the requirements for the output, including format and structure.
One more important tip: to keep the AI from fabricating, it sometimes helps to give it a way out, such as "if you cannot complete this task, reply XXX".
` + "````" + `
## Output format
Answer in the following JSON format:
{
"prompt":"the enhanced prompt, made as directive as possible"
}`

// Enhancer builds stronger prompts out of retrieved methodologies.
type Enhancer struct {
	completer Completer
	logger    *slog.Logger
}

// New creates an Enhancer backed by the given completer.
func New(completer Completer, logger *slog.Logger) *Enhancer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enhancer{completer: completer, logger: logger}
}

// Enhance asks the model to rewrite userInput using the retrieved
// methodologies and returns its output verbatim.
func (e *Enhancer) Enhance(ctx context.Context, userInput string, methodologies []knowledge.Methodology) (string, error) {
	userPrompt := fmt.Sprintf(`User requirement:
<user_query>
%s
</user_query>
Available methodology support:
<methodology>
%s
</methodology>`, userInput, renderMethodologies(methodologies))

	out, err := e.completer.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", err
	}

	e.logger.Debug("enhancement complete",
		"methodology_count", len(methodologies), "output_length", len(out))
	return out, nil
}

// renderMethodologies formats retrieved records as a numbered block in
// retrieval order. An empty slice renders as an empty block, which the
// system prompt already accounts for.
func renderMethodologies(methodologies []knowledge.Methodology) string {
	var b strings.Builder
	for i, m := range methodologies {
		fmt.Fprintf(&b, "Methodology %d: %s\n%s\n", i+1, m.Title, m.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}
