// Package events publishes and consumes expense-logged events over AMQP.
// The stream is optional: the bot works without a broker, and a missing
// publish never changes what the user sees.
package events

import (
	"encoding/json"
	"time"
)

// ExpenseLogged is emitted after a row has been appended to a user's sheet.
type ExpenseLogged struct {
	UserID   string    `json:"user_id"`
	SheetID  string    `json:"sheet_id"`
	Category string    `json:"category"`
	Amount   string    `json:"amount"`
	LoggedAt time.Time `json:"logged_at"`
}

func (e ExpenseLogged) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func ExpenseLoggedFromJSON(data []byte) (ExpenseLogged, error) {
	var ev ExpenseLogged
	err := json.Unmarshal(data, &ev)
	return ev, err
}
