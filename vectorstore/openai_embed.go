package vectorstore

import (
	"context"

	"github.com/ghiac/chatforge/apperr"
	"github.com/philippgille/chromem-go"
	openai "github.com/sashabaranov/go-openai"
)

// EmbeddingModel is the OpenAI embedding model the original's
// llama_index.embeddings.openai.OpenAIEmbedding default maps onto.
const EmbeddingModel = "text-embedding-3-small"

// NewOpenAIEmbeddingFunc adapts go-openai's embeddings endpoint to
// chromem-go's EmbeddingFunc signature (one string in, one vector out).
func NewOpenAIEmbeddingFunc(client *openai.Client) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: []string{text},
			Model: openai.EmbeddingModel(EmbeddingModel),
		})
		if err != nil {
			return nil, apperr.WrapProviderError(err, "create embedding")
		}
		if len(resp.Data) == 0 {
			return nil, apperr.ProviderError("openai returned no embedding data")
		}
		return resp.Data[0].Embedding, nil
	}
}
