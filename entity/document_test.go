package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDocumentApplyFullChange(t *testing.T) {
	d := &Document{URI: "file:///a.go", LanguageID: "go", Version: 1, Text: "package a"}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	d.ApplyFullChange("package a\n\nfunc B() {}", 2, now)

	assert.Equal(t, int32(2), d.Version)
	assert.Equal(t, "package a\n\nfunc B() {}", d.Text)
	assert.Equal(t, now, d.LastActivity)
}

func TestDocumentTouch(t *testing.T) {
	d := &Document{}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d.Touch(now)
	assert.Equal(t, now, d.LastActivity)
}
