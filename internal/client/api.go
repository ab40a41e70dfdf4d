package client

import (
	"context"
	"errors"
	"strings"

	"xstar_farm/internal/model"
)

type loginReq struct {
	DataCheckString string `json:"datacheckstring"`
}

type loginData struct {
	JWT string `json:"jwt"`
}

// Login authenticates with the raw credential payload and returns the bearer
// token extracted from the jwt field.
func (c *Client) Login(ctx context.Context, credential string) (string, error) {
	var data loginData
	if err := c.post(ctx, c.opts.BaseURL+"/api/login", loginReq{DataCheckString: credential}, false, &data); err != nil {
		return "", err
	}
	token, ok := strings.CutPrefix(data.JWT, "Bearer ")
	if !ok || token == "" {
		return "", errors.New("login response carried no bearer token")
	}
	return token, nil
}

func (c *Client) GetUser(ctx context.Context) (model.User, error) {
	var u model.User
	err := c.post(ctx, c.opts.BaseURL+"/user/showUser", nil, true, &u)
	return u, err
}

func (c *Client) BindInvitationCode(ctx context.Context, code string) error {
	return c.post(ctx, c.opts.BaseURL+"/user/bindnInvitationCode", map[string]string{"code": code}, true, nil)
}

func (c *Client) CheckinStatus(ctx context.Context) (model.CheckinStatus, error) {
	var st model.CheckinStatus
	err := c.post(ctx, c.opts.BaseURL+"/task/showTodayCheckIn", nil, true, &st)
	return st, err
}

func (c *Client) Checkin(ctx context.Context) error {
	return c.post(ctx, c.opts.BaseURL+"/task/checkInDay", nil, true, nil)
}

// GetTasks returns the raw task groups; the session flattens them.
func (c *Client) GetTasks(ctx context.Context) (map[string][]model.Task, error) {
	groups := make(map[string][]model.Task)
	err := c.post(ctx, c.opts.BaseURL+"/task/showTaskV2", nil, true, &groups)
	return groups, err
}

func (c *Client) CompleteTask(ctx context.Context, key string) error {
	return c.post(ctx, c.opts.BaseURL+"/task/taskActivity", map[string]string{"activityAction": key}, true, nil)
}

func (c *Client) FlightStatus(ctx context.Context) (model.FlightStatus, error) {
	var st model.FlightStatus
	err := c.post(ctx, c.opts.BaseURL+"/game/checkFightStatus", nil, true, &st)
	return st, err
}

func (c *Client) StopFlight(ctx context.Context) error {
	return c.post(ctx, c.opts.BaseURL+"/game/stopFlight", nil, true, nil)
}

func (c *Client) StartFlight(ctx context.Context) error {
	return c.post(ctx, c.opts.BaseURL+"/game/flightWithTime", nil, true, nil)
}

func (c *Client) RestoresStatus(ctx context.Context) (model.RestoresStatus, error) {
	var st model.RestoresStatus
	err := c.post(ctx, c.opts.BaseURL+"/fire/checkRestoresStatus", nil, true, &st)
	return st, err
}

// StartGame and StopGame run against the mini-game host, not the API root.
func (c *Client) StartGame(ctx context.Context) (model.GameStart, error) {
	var st model.GameStart
	err := c.post(ctx, c.opts.GameBaseURL+"/fire/takeOff", nil, true, &st)
	return st, err
}

func (c *Client) StopGame(ctx context.Context, number int) (model.GameStop, error) {
	var st model.GameStop
	err := c.post(ctx, c.opts.GameBaseURL+"/fire/landing", map[string]int{"number": number}, true, &st)
	return st, err
}

func (c *Client) GetPets(ctx context.Context) ([]model.Pet, error) {
	var pets []model.Pet
	err := c.post(ctx, c.opts.BaseURL+"/user/showPets", nil, true, &pets)
	return pets, err
}

func (c *Client) EquipPet(ctx context.Context, petNumber int) error {
	return c.post(ctx, c.opts.BaseURL+"/user/loadingPets", map[string]int{"petnumber": petNumber}, true, nil)
}

func (c *Client) GetStorePets(ctx context.Context) ([]model.Pet, error) {
	var pets []model.Pet
	err := c.post(ctx, c.opts.BaseURL+"/market/showPet", nil, true, &pets)
	return pets, err
}

func (c *Client) BuyPet(ctx context.Context, petNumber, number int) error {
	return c.post(ctx, c.opts.BaseURL+"/market/buy", map[string]int{"petnumber": petNumber, "number": number}, true, nil)
}

func (c *Client) SellPet(ctx context.Context, petNumber, number int) error {
	return c.post(ctx, c.opts.BaseURL+"/market/sell", map[string]int{"petnumber": petNumber, "number": number}, true, nil)
}

func (c *Client) UpgradeSpeed(ctx context.Context) error {
	return c.post(ctx, c.opts.BaseURL+"/user/upgradeLevel", nil, true, nil)
}
