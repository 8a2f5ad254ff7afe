package dto

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type CreateTableRequest struct {
	Name       string `json:"name" validate:"required,min=3,max=100"`
	Password   string `json:"password" validate:"required,min=1"`
	MaxPlayers int    `json:"max_players" validate:"required,min=1,max=100"`
	Stake      string `json:"stake" validate:"required"`
	Private    bool   `json:"private"`
}

func (r *CreateTableRequest) Validate() error { return validate.Struct(r) }

type JoinTableRequest struct {
	Password string `json:"password" validate:"required"`
}

func (r *JoinTableRequest) Validate() error { return validate.Struct(r) }

type AdminRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

func (r *AdminRequest) Validate() error { return validate.Struct(r) }

type CreateMatchRequest struct {
	HomeTeam  string    `json:"home_team" validate:"required,max=100"`
	AwayTeam  string    `json:"away_team" validate:"required,max=100"`
	KickoffAt time.Time `json:"kickoff_at" validate:"required"`
}

func (r *CreateMatchRequest) Validate() error { return validate.Struct(r) }

type PlaceBetRequest struct {
	Prediction string `json:"prediction" validate:"required,max=16"`
}

func (r *PlaceBetRequest) Validate() error { return validate.Struct(r) }

type ResultRequest struct {
	Result string `json:"result" validate:"required,max=16"`
}

func (r *ResultRequest) Validate() error { return validate.Struct(r) }
