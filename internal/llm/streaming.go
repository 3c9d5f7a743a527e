package llm

import (
	"log"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"
)

// Stream wraps the SSE completion stream so callers outside this package
// never touch the SDK types directly.
type Stream struct {
	inner *ssestream.Stream[openai.ChatCompletionChunk]
}

type StreamChunk struct {
	Text  string
	Error error
	Done  bool
}

func ReadStreamChunks(stream *Stream, debug bool) <-chan StreamChunk {
	chunks := make(chan StreamChunk)

	go func() {
		defer close(chunks)
		defer stream.inner.Close()

		for stream.inner.Next() {
			chunk := stream.inner.Current()
			if len(chunk.Choices) > 0 {
				delta := chunk.Choices[0].Delta.Content
				if delta != "" {
					if debug {
						log.Printf("Stream chunk: %q", delta)
					}
					chunks <- StreamChunk{Text: delta}
				}
			}
		}

		if err := stream.inner.Err(); err != nil {
			if debug {
				log.Printf("Stream error: %v", err)
			}
			chunks <- StreamChunk{Error: &GenerationError{Op: "stream completion", Err: err}, Done: true}
			return
		}

		if debug {
			log.Println("Stream finished")
		}
		chunks <- StreamChunk{Done: true}
	}()

	return chunks
}
