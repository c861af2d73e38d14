// Package extract turns source text into methodology records via an LLM.
//
// The extractor returns the model output verbatim. Parsing the payload is
// the storage layer's concern; keeping the handoff opaque means a model
// that ignores the JSON instruction fails at the store boundary with a
// clear payload error instead of failing silently here.
package extract

import (
	"context"
	"fmt"
	"log/slog"
)

// Completer produces a chat completion from a system and user prompt.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// systemPrompt instructs the model to distill actionable methodologies
// and emit them as a JSON array. The reference format keeps outputs
// consistent enough to embed and retrieve as standalone units.
const systemPrompt = `Act as a course designer. Your task is to extract methodologies from the article content I provide.
Every methodology you extract must be actionable and executable: a learner should be able to use it to produce their own work.
A reference format follows (do not include the code fence markers in your output):
` + "```" + `
## Using mental accounting to write sales copy
### Core principle
//Summarize the principle behind the methodology so the learner fully understands the background
- People hold money to different standards and divide spending into separate mental accounts.
- Typical accounts: daily necessities, family building, personal growth, emotional bonds, leisure.
- Moving a purchase from an account people resist spending from into one they enjoy spending from closes the sale.
### How to apply
//The way of thinking or the concrete steps for applying the methodology
- Identify the budget ceiling of each account: necessities usually carry a lower ceiling than emotional accounts.
- Identify the priority of each account: necessity spending is a baseline and its budget cannot be shifted elsewhere.
- Steer the buyer between accounts: frame the product so it lands in a higher-budget account.
### Details and examples
//Call out details that matter when using the methodology, and include examples drawn from the article (leave empty if none)
` + "```" + `
**Notes**
1. If the article contains no extractable methodology, reply "The provided article contains no extractable methodology."
2. If the article contains several methodologies, extract each one and output all of them.
Output as JSON with this structure:
[{
"title":"name of the methodology",
"description":"when to use the methodology",
"methodology":"the extracted methodology content"
}]`

// Extractor distills methodologies from article text.
type Extractor struct {
	completer Completer
	logger    *slog.Logger
}

// New creates an Extractor backed by the given completer.
func New(completer Completer, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{completer: completer, logger: logger}
}

// Extract asks the model for the methodologies in content and returns its
// output verbatim.
func (e *Extractor) Extract(ctx context.Context, content string) (string, error) {
	userPrompt := fmt.Sprintf("Article to extract methodologies from:\n<content>\n%s\n</content>", content)

	out, err := e.completer.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", err
	}

	e.logger.Debug("extraction complete", "input_length", len(content), "output_length", len(out))
	return out, nil
}
