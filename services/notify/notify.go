package notify

import (
	"context"
	"fmt"

	"github.com/matheuscscp/fairshare/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

type (
	// Service tells the host about activity on their sessions.
	Service interface {
		ParticipantJoined(ctx context.Context, session *models.Session, participant *models.Participant) error
		FullyClaimed(ctx context.Context, session *models.Session, summary *models.Summary) error
	}

	// Sender is the part of *tgbotapi.BotAPI the notifier needs.
	Sender interface {
		Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	}

	telegramService struct {
		sender  Sender
		chatID  int64
		baseURL string
	}

	noopService struct{}
)

// NewService returns a Telegram notifier, or one that does nothing when the
// token or the chat is not configured.
func NewService(token string, chatID int64, baseURL string) (Service, error) {
	if token == "" || chatID == 0 {
		return noopService{}, nil
	}
	client, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("error creating Telegram Bot API client: %w", err)
	}
	logrus.Infof("Authenticated on Telegram bot account %s", client.Self.UserName)
	return NewServiceWithSender(client, chatID, baseURL), nil
}

// NewServiceWithSender ...
func NewServiceWithSender(sender Sender, chatID int64, baseURL string) Service {
	return &telegramService{
		sender:  sender,
		chatID:  chatID,
		baseURL: baseURL,
	}
}

func (t *telegramService) ParticipantJoined(ctx context.Context, session *models.Session, participant *models.Participant) error {
	return t.send(`%s joined your receipt (%s).

%s`, participant.Name, session.Slug, models.ShareLink(t.baseURL, session.Slug))
}

func (t *telegramService) FullyClaimed(ctx context.Context, session *models.Session, summary *models.Summary) error {
	text := fmt.Sprintf("Every item of receipt %s was claimed. Total: $%s", session.Slug, summary.Total)
	for _, p := range summary.Participants {
		text += fmt.Sprintf("\n%s owes $%s", p.Name, p.Owed)
	}
	return t.send("%s", text)
}

func (t *telegramService) send(format string, args ...interface{}) error {
	text := fmt.Sprintf(format, args...)
	logrus.Infof("[telegram] %s", text)
	if _, err := t.sender.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		return fmt.Errorf("error sending telegram message: %w", err)
	}
	return nil
}

func (noopService) ParticipantJoined(context.Context, *models.Session, *models.Participant) error {
	return nil
}

func (noopService) FullyClaimed(context.Context, *models.Session, *models.Summary) error {
	return nil
}
