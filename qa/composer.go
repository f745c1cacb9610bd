// Package qa composes grounded, citation-bearing answers from retrieved
// chunks via a remote chat-completion service.
package qa

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/wbl65535/Data-Engineering-1/model"
	"github.com/wbl65535/Data-Engineering-1/types"
)

const systemPrompt = `You are an assistant for an intelligent data engineering course. Answer user questions based on the provided reference documents.
- Use only information from the provided reference documents, never outside knowledge.
- Even when no paragraph is explicitly labeled with the topic, extract and analyze relevant information from the content.
- When information is spread across several documents, synthesize it into a complete answer.
- If the question has several aspects, cover each of them from the documents as fully as possible.
- If the reference documents contain no relevant information at all, state plainly that the question cannot be answered and cite no sources.
- Answer thoroughly and accurately, and always end the answer with the information sources (document name, page and paragraph).
- When several references were used, list each source separately.`

const declineAnswer = "No relevant information was found in the course documents, so this question cannot be answered."

const missingKeyAnswer = "Error: API key is not set. Please set the API_KEY environment variable."

// Composer turns retrieved documents and a query into a cited answer.
// Every failure is returned inside the answer text; Answer never fails.
type Composer struct {
	llm *model.CompletionClient
}

func NewComposer(llm *model.CompletionClient) *Composer {
	return &Composer{llm: llm}
}

// FormatContext renders the retrieved documents as a context block. Each
// document gets a citation tag carrying its provenance, in input order.
func FormatContext(docs []types.RetrievedDocument) string {
	parts := make([]string, 0, len(docs))
	for i, doc := range docs {
		ref := fmt.Sprintf("[Source %d: Document %q page %d paragraph %d]",
			i+1, doc.Metadata.Source, doc.Metadata.PageNumber, doc.Metadata.ParagraphNumber)
		parts = append(parts, ref+"\n"+doc.Text+"\n")
	}
	return strings.Join(parts, "\n")
}

// Answer builds the prompt from the retrieved documents and dispatches a
// single non-streaming completion request. Transport, status and parsing
// failures come back as a descriptive answer string, never as an error.
func (c *Composer) Answer(ctx context.Context, query string, docs []types.RetrievedDocument) types.AnswerResponse {
	resp := types.AnswerResponse{
		Query:   query,
		Sources: docs,
	}

	if !c.llm.HasKey() {
		resp.Answer = missingKeyAnswer
		return resp
	}

	if len(docs) == 0 {
		resp.Answer = declineAnswer
		return resp
	}

	userPrompt := fmt.Sprintf(`Reference documents:
%s

User question: %s

Answer the question from the reference documents above and list the information sources at the end:`,
		FormatContext(docs), query)

	messages := []model.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}

	if count, err := countTokens(systemPrompt + userPrompt); err == nil {
		log.Printf("[QA] prompt size: %d tokens", count)
	}

	answer, err := c.llm.Complete(ctx, messages)
	if err != nil {
		msg := fmt.Sprintf("Error generating answer: %v", err)
		log.Printf("[QA] %s", msg)
		resp.Answer = msg
		return resp
	}

	resp.Answer = answer
	return resp
}

func countTokens(text string) (int, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}
