package vectorstore

import "github.com/pkoukk/tiktoken-go"

// ChunkSize and ChunkOverlap mirror the original's
// SimpleNodeParser.from_defaults(chunk_size=512, chunk_overlap=50).
const (
	ChunkSize    = 512
	ChunkOverlap = 50
)

// ChunkText splits text into overlapping windows of roughly ChunkSize
// cl100k_base tokens, sliding forward by ChunkSize-ChunkOverlap tokens each
// step — the same fixed-size-with-overlap shape as the original's node
// parser, minus the document-tree bookkeeping a single-purpose splitter
// doesn't need.
func ChunkText(text string) []string {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil || text == "" {
		return splitByRunes(text)
	}

	tokens := enc.Encode(text, nil, nil)
	if len(tokens) == 0 {
		return nil
	}

	stride := ChunkSize - ChunkOverlap
	var chunks []string
	for start := 0; start < len(tokens); start += stride {
		end := start + ChunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, enc.Decode(tokens[start:end]))
		if end == len(tokens) {
			break
		}
	}
	return chunks
}

// splitByRunes is the degraded fallback when the tokenizer can't be
// loaded: fixed-size rune windows approximating the same token budget at
// ~4 chars/token.
func splitByRunes(text string) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	const approxCharsPerToken = 4
	size := ChunkSize * approxCharsPerToken
	overlap := ChunkOverlap * approxCharsPerToken
	stride := size - overlap

	var chunks []string
	for start := 0; start < len(runes); start += stride {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
