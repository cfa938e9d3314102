package sms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "national nine digits", in: "601234567", want: "+48601234567"},
		{name: "spaces and dashes", in: "601 234-567", want: "+48601234567"},
		{name: "already prefixed", in: "+48601234567", want: "+48601234567"},
		{name: "double zero prefix", in: "0048601234567", want: "+48601234567"},
		{name: "foreign number", in: "+4915112345678", want: "+4915112345678"},
		{name: "too short", in: "12345", wantErr: true},
		{name: "empty", in: "", wantErr: true},
		{name: "letters only", in: "call me", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPhone)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
