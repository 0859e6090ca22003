package platform

import (
	gojwt "github.com/golang-jwt/jwt/v5"
)

// identity claims carried by the platform session jwt.
// the token is minted and verified platform-side; the client
// only decodes it for display and routing.
type SessionJwt struct {
	PlayerId   Id
	PlayerName string
	GameId     string
	Guest      bool
}

func ParseSessionJwtUnverified(sessionJwt string) (*SessionJwt, error) {
	parser := gojwt.NewParser()
	token, _, err := parser.ParseUnverified(sessionJwt, gojwt.MapClaims{})
	if err != nil {
		return nil, err
	}

	claims := token.Claims.(gojwt.MapClaims)

	parsed := &SessionJwt{}

	if playerIdStr, ok := claims["player_id"].(string); ok {
		if playerId, err := ParseId(playerIdStr); err == nil {
			parsed.PlayerId = playerId
		}
	}
	if playerName, ok := claims["player_name"].(string); ok {
		parsed.PlayerName = playerName
	}
	if gameId, ok := claims["game_id"].(string); ok {
		parsed.GameId = gameId
	}
	if guest, ok := claims["guest"].(bool); ok {
		parsed.Guest = guest
	}

	return parsed, nil
}
