package app

import (
	"docuchat/internal/ai"
	"docuchat/internal/model"
)

// historyWindow bounds how many prior interactions are replayed to the model
// on each question. Limits request size while keeping recent context.
const historyWindow = 5

// buildContents produces the exact turn sequence submitted to the model:
// each prior interaction becomes a "user" turn (the question) followed by a
// "model" turn (the answer), in chronological order, and the final "user"
// turn carries the document handle together with the new question.
//
// recent is expected newest-first, as the store returns it; it is reversed
// here to restore chronological order. The document is re-attached on every
// call since the provider does not retain file-to-conversation binding.
func buildContents(recent []model.Interaction, handle *ai.FileHandle, question string) []ai.Content {
	contents := make([]ai.Content, 0, 2*len(recent)+1)

	for i := len(recent) - 1; i >= 0; i-- {
		contents = append(contents, ai.Content{
			Role:  "user",
			Parts: []ai.Part{{Text: recent[i].Question}},
		})
		contents = append(contents, ai.Content{
			Role:  "model",
			Parts: []ai.Part{{Text: recent[i].Answer}},
		})
	}

	contents = append(contents, ai.Content{
		Role: "user",
		Parts: []ai.Part{
			{FileData: &ai.FileData{MIMEType: handle.MIMEType, FileURI: handle.URI}},
			{Text: question},
		},
	})
	return contents
}
