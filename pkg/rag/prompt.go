package rag

import (
	"fmt"
	"strings"

	"doc-domains-be/pkg/llm"
	"doc-domains-be/pkg/vectorstore"
)

// buildGenerationMessages assembles the chat history handed to the
// generation model. Context chunks are numbered so the model can cite them;
// with no context at all the model is told to say so instead of inventing
// an answer.
func buildGenerationMessages(domain, query string, contexts []vectorstore.ScoredPoint) []llm.Message {
	var system strings.Builder
	system.WriteString("You are a precise assistant answering questions about the document collection \"")
	system.WriteString(domain)
	system.WriteString("\".\n")

	if len(contexts) == 0 {
		system.WriteString("No relevant documents were found for this question. ")
		system.WriteString("Say clearly that the collection contains no information on the topic. Do not invent facts.\n")
	} else {
		system.WriteString("Answer using only the context below. Cite sources as [n]. ")
		system.WriteString("If the context does not cover the question, say so.\n\nContext:\n")
		for i, c := range contexts {
			fmt.Fprintf(&system, "[%d] (%s, chunk %d) %s\n\n", i+1, c.Payload.File, c.Payload.ChunkIndex, c.Payload.Text)
		}
	}

	return []llm.Message{
		{Role: "system", Content: system.String()},
		{Role: "user", Content: query},
	}
}
