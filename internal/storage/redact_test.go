package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/garyellow/ptc-frontdesk/internal/errors"
)

func TestRedact(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"email", "Schreiben Sie an max.muster@example.de bitte", "Schreiben Sie an [email] bitte"},
		{"phone with spaces", "Ruft mich an: 0171 2345678", "Ruft mich an: [telefon]"},
		{"international phone", "+49 (5121) 281-9760 ist meine Nummer", "[telefon] ist meine Nummer"},
		{"phone with slash", "Tel 05121/2819760", "Tel [telefon]"},
		{"short numbers kept", "Ich bin 35 und wiege 90 kg", "Ich bin 35 und wiege 90 kg"},
		{"times kept", "Kurs um 16:45 oder 17:15", "Kurs um 16:45 oder 17:15"},
		{"both", "a@b.de oder 0151 98765432", "[email] oder [telefon]"},
		{"nothing", "Was kostet die Mitgliedschaft?", "Was kostet die Mitgliedschaft?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Redact(tt.input))
		})
	}
}

func TestNewInteraction(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	in := NewInteraction(at, "s1", "pricing", "", "Mail: anna@example.com – Rückenübungen", 20)

	assert.Equal(t, "Mail: [email] – Rück", in.Input)
	assert.Equal(t, time.UTC, in.Timestamp.Location())
	assert.True(t, in.Timestamp.Equal(at))
}

func TestMemoryRecorder_FailWith(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := NewMemoryRecorder()

	r.FailWith(errors.New("disk full"))
	err := r.RecordTurn(ctx, turn(0, "trial"))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrPersistence)
	assert.ErrorContains(t, err, "disk full")

	r.FailWith(nil)
	require.NoError(t, r.RecordTurn(ctx, turn(1, "trial")))
	c, err := r.Counters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Total())
}
