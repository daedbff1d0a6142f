package openaipkg

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/matheuscscp/fairshare/models"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

type (
	// ChatClient is the part of *openai.Client the extractor needs.
	ChatClient interface {
		CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	}

	// Extractor turns receipt photos into receipt items with a vision model.
	Extractor struct {
		client    ChatClient
		model     string
		maxTokens int
	}

	extractedItem struct {
		Name  string  `json:"item_name"`
		Count float64 `json:"item_count"`
		Price float64 `json:"items_price"`
	}
)

const (
	extractPrompt = `This is meant to be an image of a receipt. For each item, extract the name, the number of items, and the total price for that line in the format: {"item_name": "garlic bread", "item_count": 2, "items_price": 16.5}, and return all such items in an array. E.g. [{"item_name": "garlic bread", "item_count": 2, "items_price": 12.95}, {"item_name": "coke", "item_count": 4, "items_price": 32}, {"item_name": "Iced Tea", "item_count": 1, "items_price": 8}].

Capitalise the first letter of each word of the item names only. If there are fees or surcharges at the end of the receipt, include them as items. Ignore all non-item text such as totals, taxes already included in the prices, addresses and payment details.

Return ONLY the array, in a single line, with absolutely no other text. If you cannot see any items, return [].`

	followupPrompt = `Here is a JSON array of items extracted from a receipt:

%s

Apply the following correction and return the whole corrected array in the same format, in a single line, with absolutely no other text:

%s`
)

var (
	// ErrNoChoices ...
	ErrNoChoices = errors.New("no valid response from OpenAI API")

	// ErrEmptyImage ...
	ErrEmptyImage = errors.New("empty image")
)

// NewExtractor ...
func NewExtractor(token, model string, maxTokens int) *Extractor {
	return NewExtractorWithClient(openai.NewClient(token), model, maxTokens)
}

// NewExtractorWithClient ...
func NewExtractorWithClient(client ChatClient, model string, maxTokens int) *Extractor {
	return &Extractor{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
	}
}

// Extract sends the image to the vision model and parses the items it
// returns. A reply that holds no parseable items yields an empty receipt.
func (e *Extractor) Extract(ctx context.Context, image []byte, mimeType string) (models.Receipt, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	content, err := e.complete(ctx, []openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{
					Type: openai.ChatMessagePartTypeText,
					Text: extractPrompt,
				},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image)),
						Detail: openai.ImageURLDetailHigh,
					},
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return ParseItems(content), nil
}

// Followup asks the model to correct a previous extraction, e.g. "the coke
// was 3 not 4".
func (e *Extractor) Followup(ctx context.Context, items models.Receipt, prompt string) (models.Receipt, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return items, nil
	}
	current := make([]extractedItem, len(items))
	for i, item := range items {
		current[i] = extractedItem{
			Name:  item.Name,
			Count: float64(item.Count),
			Price: item.Price.Float(),
		}
	}
	b, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("error marshaling current items: %w", err)
	}
	content, err := e.complete(ctx, []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleUser,
			Content: fmt.Sprintf(followupPrompt, b, prompt),
		},
	})
	if err != nil {
		return nil, err
	}
	return ParseItems(content), nil
}

func (e *Extractor) complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("error creating chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	content := resp.Choices[0].Message.Content
	logrus.WithField("usage", resp.Usage.TotalTokens).Debugf("openai replied: %s", content)
	return content, nil
}

// ParseItems decodes the model's reply. Both a bare array and an object
// with an "items" array are accepted. Counts below one become one.
func ParseItems(content string) models.Receipt {
	cleaned := CleanOpenAIJSONResponse(content)
	if cleaned == "" {
		return models.Receipt{}
	}
	var items []extractedItem
	var err error
	if cleaned[0] == '[' {
		err = json.Unmarshal([]byte(cleaned), &items)
	} else {
		var wrapper struct {
			Items []extractedItem `json:"items"`
		}
		err = json.Unmarshal([]byte(cleaned), &wrapper)
		items = wrapper.Items
	}
	if err != nil {
		logrus.WithError(err).Warnf("error parsing openai reply as receipt items: %s", content)
		return models.Receipt{}
	}

	receipt := make(models.Receipt, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			continue
		}
		receipt = append(receipt, &models.ReceiptItem{
			Name:  item.Name,
			Count: int(math.Round(item.Count)),
			Price: models.PriceFromFloat(item.Price),
		})
	}
	return receipt.Normalize()
}
