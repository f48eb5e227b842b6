package collection

import (
	"time"

	"github.com/stacksift/api/internal/website"
)

type Collection struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	UserID    string            `json:"userId"`
	Websites  []website.Website `json:"websites"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}
