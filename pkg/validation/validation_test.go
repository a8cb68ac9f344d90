package validation

import (
	"strings"
	"testing"
)

func TestValidateSessionID(t *testing.T) {
	tests := []struct {
		name      string
		sessionID string
		wantErr   bool
	}{
		{"valid session ID", "session-123", false},
		{"valid with underscore", "session_123", false},
		{"valid uuid", "9f1b2a4c-3d5e-4f6a-8b7c-1d2e3f4a5b6c", false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 101), true},
		{"invalid chars", "session 123", true},
		{"invalid chars 2", "session@123", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSessionID(tt.sessionID)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSessionID() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSessionTitle(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		wantErr bool
	}{
		{"valid title", "Regionals free skate review", false},
		{"valid unicode", "Обзор произвольной программы", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"too long", strings.Repeat("a", 201), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSessionTitle(tt.title)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSessionTitle() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateMediaURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid http", "http://example.com/video.mp4", false},
		{"valid https", "https://cdn.example.com/video.mp4", false},
		{"valid file", "file:///media/video.mp4", false},
		{"valid bare path", "/media/video.mp4", false},
		{"empty", "", true},
		{"invalid scheme", "rtsp://example.com/video", true},
		{"no host", "http://", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMediaURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMediaURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateStrokeColor(t *testing.T) {
	tests := []struct {
		name    string
		color   string
		wantErr bool
	}{
		{"valid lowercase", "#ff0000", false},
		{"valid uppercase", "#FF8800", false},
		{"empty falls back to default", "", false},
		{"missing hash", "ff0000", true},
		{"too short", "#fff", true},
		{"invalid chars", "#gg0000", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStrokeColor(tt.color)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStrokeColor() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDurationSeconds(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		wantErr bool
	}{
		{"valid duration", 212.5, false},
		{"short clip", 0.5, false},
		{"zero", 0, true},
		{"negative", -10, true},
		{"too long", 25 * 60 * 60, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDurationSeconds(tt.seconds)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDurationSeconds() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
