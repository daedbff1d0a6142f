package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type (
	// Session is one receipt being split. Friends reach it through its slug.
	Session struct {
		ID         string    `json:"id"`
		Slug       string    `json:"slug"`
		BeemHandle string    `json:"beem_handle"`
		Items      Receipt   `json:"items"`
		CreatedAt  time.Time `json:"created_at"`
		UpdatedAt  time.Time `json:"updated_at"`
	}

	// Participant is a friend who joined a session.
	Participant struct {
		ID        string    `json:"id"`
		SessionID string    `json:"session_id"`
		Name      string    `json:"name"`
		Ordinal   int       `json:"ordinal"`
		JoinedAt  time.Time `json:"joined_at"`
	}
)

const (
	beemPayURL = "https://beem.com.au/app/pay"
)

// ShareLink is the page friends open to join the session.
func ShareLink(baseURL, slug string) string {
	return fmt.Sprintf("%s/friend/%s", strings.TrimRight(baseURL, "/"), url.PathEscape(slug))
}

// PaymentLink is the Beem link that pays amount to handle on behalf of name.
func PaymentLink(handle, name string, amount PriceInCents) string {
	q := url.Values{}
	q.Set("amount", fmt.Sprintf("%d", int64(amount)))
	q.Set("handle", handle)
	q.Set("description", fmt.Sprintf("%s's part of the receipt", name))
	return beemPayURL + "?" + q.Encode()
}
