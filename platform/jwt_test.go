package platform

import (
	"testing"

	"github.com/go-playground/assert/v2"

	gojwt "github.com/golang-jwt/jwt/v5"
)

func testSessionJwt(t *testing.T, claims gojwt.MapClaims) string {
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	sessionJwt, err := token.SignedString([]byte("test-secret"))
	assert.Equal(t, nil, err)
	return sessionJwt
}

func TestParseSessionJwtUnverified(t *testing.T) {
	playerId := NewId()
	sessionJwt := testSessionJwt(t, gojwt.MapClaims{
		"player_id":   playerId.String(),
		"player_name": "alyx",
		"game_id":     "tower-blocks",
		"guest":       true,
	})

	parsed, err := ParseSessionJwtUnverified(sessionJwt)
	assert.Equal(t, nil, err)
	assert.Equal(t, playerId, parsed.PlayerId)
	assert.Equal(t, "alyx", parsed.PlayerName)
	assert.Equal(t, "tower-blocks", parsed.GameId)
	assert.Equal(t, true, parsed.Guest)
}

func TestParseSessionJwtUnverifiedPartialClaims(t *testing.T) {
	sessionJwt := testSessionJwt(t, gojwt.MapClaims{
		"game_id": "tower-blocks",
	})

	parsed, err := ParseSessionJwtUnverified(sessionJwt)
	assert.Equal(t, nil, err)
	assert.Equal(t, true, parsed.PlayerId.IsZero())
	assert.Equal(t, "tower-blocks", parsed.GameId)
	assert.Equal(t, false, parsed.Guest)
}

func TestParseSessionJwtUnverifiedMalformed(t *testing.T) {
	_, err := ParseSessionJwtUnverified("not-a-jwt")
	assert.NotEqual(t, nil, err)
}
