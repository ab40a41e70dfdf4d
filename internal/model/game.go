package model

import "encoding/json"

// User mirrors the /user/showUser payload.
type User struct {
	Xcoin        float64     `json:"xcoin"`
	XHS          float64     `json:"xhs"`
	TrueXHS      float64     `json:"TrueXhs"`
	MLMMultiples float64     `json:"mlmmultiples"`
	Bind         bool        `json:"bind"`
	Level        int         `json:"lv"`
	Kms          float64     `json:"kms"`
	PetNumber    int         `json:"petnumber"`
	XID          json.Number `json:"xid"`
}

type CheckinStatus struct {
	IsQualifications bool `json:"isQualifications"`
}

type TaskProperty struct {
	Title string `json:"title"`
}

type Task struct {
	Key              string       `json:"key"`
	From             string       `json:"from"`
	IsReceive        bool         `json:"isReceive"`
	IsQualifications bool         `json:"isQualifications"`
	Property         TaskProperty `json:"property"`
}

type PetProperty struct {
	Name string  `json:"name"`
	Buy  float64 `json:"buy"`
	Sell float64 `json:"sell"`
}

// Pet is an owned or listed pet. Number is the held quantity for owned pets.
type Pet struct {
	PetNumber int         `json:"petnumber"`
	Number    int         `json:"number"`
	Property  PetProperty `json:"property"`
}

// FlightStatus mirrors /game/checkFightStatus. A zero StopTime means the
// flight has never been started or its window is unknown.
type FlightStatus struct {
	StopTime   int64   `json:"stopTime"`
	ClaimXcoin float64 `json:"claimXcoin"`
	Level      int     `json:"lv"`
}

type RestoresStatus struct {
	Draws int `json:"draws"`
}

type GameStart struct {
	Result string `json:"result"`
}

type GameReward struct {
	Name string `json:"name"`
}

type GameStop struct {
	Status bool        `json:"status"`
	Xcoin  float64     `json:"xcoin"`
	Info   *GameReward `json:"info,omitempty"`
}
