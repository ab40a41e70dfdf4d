// Package session runs the fixed sequence of game actions for one account:
// token, profile, invite binding, check-in, task sweep, mining cycle, pet
// management, speed upgrades, the reward mini-game, and a final summary. A
// failure acquiring the token or the profile ends the session; every later
// state is best-effort and only logged.
package session

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"xstar_farm/internal/auth"
	"xstar_farm/internal/client"
	"xstar_farm/internal/config"
	"xstar_farm/internal/logbus"
	"xstar_farm/internal/model"
)

// The mini-game stop parameter simulating a human-timed landing. Uniform in
// this range with no feedback from prior rounds.
const (
	stopNumberMin = 4500
	stopNumberMax = 4600
)

const profileAttempts = 2

type Options struct {
	Index  int
	Client *client.Client
	Tokens *auth.Manager
	Log    *logbus.AccountLogger
	Bot    config.BotConfig
	Timing config.TimingConfig
	Rand   *rand.Rand
}

type Session struct {
	opts Options
	rand *rand.Rand
}

func New(opts Options) *Session {
	r := opts.Rand
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano() + int64(opts.Index)))
	}
	return &Session{opts: opts, rand: r}
}

// Run executes the state machine once. The returned error reports whether
// the session ran to completion, not whether every action succeeded.
func (s *Session) Run(ctx context.Context) error {
	log := s.opts.Log

	if _, err := s.opts.Tokens.GetValidToken(ctx); err != nil {
		log.Error("Can't get token for account %d, skipping... (%v)", s.opts.Index+1, err)
		return fmt.Errorf("acquire token: %w", err)
	}

	user, err := s.fetchProfile(ctx)
	if err != nil {
		log.Error("Can't get user info, skipping... (%v)", err)
		return fmt.Errorf("fetch profile: %w", err)
	}
	s.logSummary(user)

	if !user.Bind {
		if err := s.opts.Client.BindInvitationCode(ctx, s.opts.Bot.InviteCode); err != nil {
			log.Warn("Binding invitation code failed: %v", err)
		}
	}

	steps := []struct {
		name string
		run  func(context.Context)
		skip bool
	}{
		{name: "checkin", run: s.handleCheckIn},
		{name: "tasks", run: s.handleTasks, skip: !s.opts.Bot.AutoTask},
		{name: "mining", run: s.handleMining},
		{name: "pets", run: s.handlePets, skip: user.PetNumber > 0},
		{name: "speed", run: s.handleSpeedUpgrade},
		{name: "game", run: s.handleGame},
	}
	for _, step := range steps {
		if step.skip {
			continue
		}
		if !s.sleep(ctx, s.opts.Timing.StepDelay()) {
			return ctx.Err()
		}
		step.run(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	if final, err := s.opts.Client.GetUser(ctx); err == nil {
		s.logSummary(final)
	}
	return nil
}

func (s *Session) fetchProfile(ctx context.Context) (model.User, error) {
	var lastErr error
	for attempt := 0; attempt < profileAttempts; attempt++ {
		user, err := s.opts.Client.GetUser(ctx)
		if err == nil {
			return user, nil
		}
		lastErr = err
	}
	return model.User{}, lastErr
}

func (s *Session) logSummary(u model.User) {
	s.opts.Log.Info("Xcoin: %.0f | XHS: %.2f | Speed level: %d(%.2f km/s) | Pet number ID: %d | Verify human xid: %s",
		u.Xcoin, u.XHS, u.Level, u.Kms, u.PetNumber, u.XID.String())
}

func (s *Session) handleCheckIn(ctx context.Context) {
	log := s.opts.Log
	status, err := s.opts.Client.CheckinStatus(ctx)
	if err != nil {
		log.Error("Can't get checkin info: %v", err)
		return
	}
	if !status.IsQualifications {
		log.Warn("You checked in today, come back tomorrow!")
		return
	}
	if err := s.opts.Client.Checkin(ctx); err != nil {
		log.Warn("Checkin failed: %v", err)
		return
	}
	log.Success("Checkin successful!")
}

func (s *Session) handleTasks(ctx context.Context) {
	log := s.opts.Log
	groups, err := s.opts.Client.GetTasks(ctx)
	if err != nil {
		log.Warn("Can't fetch tasks: %v", err)
		return
	}

	skip := make(map[string]bool, len(s.opts.Bot.SkipTasks))
	for _, k := range s.opts.Bot.SkipTasks {
		skip[k] = true
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pending []model.Task
	for _, k := range keys {
		for _, t := range groups[k] {
			if t.IsReceive || !t.IsQualifications || skip[t.Key] {
				continue
			}
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		log.Warn("No tasks available!")
		return
	}

	for _, task := range pending {
		if !s.sleep(ctx, s.opts.Timing.TaskDelay()) {
			return
		}
		log.Info("Completing task %s | %s | %s...", task.From, task.Key, task.Property.Title)
		if err := s.opts.Client.CompleteTask(ctx, task.Key); err != nil {
			log.Warn("Task %s failed: %v", task.Key, err)
			continue
		}
		log.Success("Task %s | %s completed successfully!", task.Key, task.Property.Title)
	}
}

func (s *Session) handleMining(ctx context.Context) {
	log := s.opts.Log
	status, err := s.opts.Client.FlightStatus(ctx)
	if err != nil {
		log.Error("Can't get flight status: %v", err)
		return
	}
	log.Info("Flighting | Level: %d | xCoin mined: %.2f...", status.Level, status.ClaimXcoin)

	if status.StopTime != 0 && time.Now().Unix() <= status.StopTime {
		log.Warn("Flight running!")
		return
	}

	if err := s.opts.Client.StopFlight(ctx); err == nil {
		log.Success("Flight stopped successfully! | Reward: %.2f", status.ClaimXcoin)
	}
	log.Warn("Start flighting...")
	if err := s.opts.Client.StartFlight(ctx); err != nil {
		log.Warn("Start flight failed: %v", err)
	}
}

func (s *Session) handlePets(ctx context.Context) {
	log := s.opts.Log
	pets, err := s.opts.Client.GetPets(ctx)
	if err != nil {
		log.Warn("Can't fetch pets: %v", err)
		return
	}
	user, err := s.opts.Client.GetUser(ctx)
	if err != nil {
		log.Warn("Can't fetch user info for pets: %v", err)
		return
	}
	if user.PetNumber > 0 {
		return
	}

	// Walk the list back to front, same order the store shows newest pets.
	var held *model.Pet
	for i := len(pets) - 1; i >= 0; i-- {
		if pets[i].Number > 0 {
			held = &pets[i]
			break
		}
	}

	if held == nil {
		if !s.opts.Bot.AutoBuyPet {
			log.Warn("No equipped pet found, and auto buy pet is disabled.")
			return
		}
		log.Warn("No equipped pet found, starting buy pet...")
		if !s.sleep(ctx, s.opts.Timing.StepDelay()) {
			return
		}
		s.handleBuyPet(ctx, user)
		return
	}

	if err := s.opts.Client.EquipPet(ctx, held.PetNumber); err != nil {
		log.Warn("Equip pet %d failed: %v", held.PetNumber, err)
		return
	}
	log.Success("Equipped pet: %s (%d)", held.Property.Name, held.PetNumber)

	if !s.opts.Bot.AutoSellPet {
		return
	}
	for _, pet := range pets {
		if pet.PetNumber == held.PetNumber || pet.Number <= 0 {
			continue
		}
		if !s.sleep(ctx, s.opts.Timing.SellDelay()) {
			return
		}
		if err := s.opts.Client.SellPet(ctx, pet.PetNumber, pet.Number); err != nil {
			log.Warn("Failed to sell pet: %s (%d): %v", pet.Property.Name, pet.PetNumber, err)
			continue
		}
		log.Success("Selling pet: %s (%d) | Reward: %.2f", pet.Property.Name, pet.PetNumber, pet.Property.Sell*float64(pet.Number))
	}
}

func (s *Session) handleBuyPet(ctx context.Context, user model.User) {
	log := s.opts.Log
	store, err := s.opts.Client.GetStorePets(ctx)
	if err != nil {
		log.Warn("Can't fetch pet store: %v", err)
		return
	}
	for i := len(store) - 1; i >= 0; i-- {
		pet := store[i]
		if pet.Property.Buy > user.Xcoin {
			continue
		}
		log.Success("Buying pet: %s (%d)", pet.Property.Name, pet.PetNumber)
		if err := s.opts.Client.BuyPet(ctx, pet.PetNumber, 1); err != nil {
			log.Warn("Buy pet %d failed: %v", pet.PetNumber, err)
		}
		return
	}
	log.Warn("No pet found in store to buy.")
}

// handleSpeedUpgrade purchases levels while the locally mirrored balance
// covers the exponential cost curve. The mirror is decremented instead of
// re-fetching after every purchase; staleness is accepted to save calls.
func (s *Session) handleSpeedUpgrade(ctx context.Context) {
	log := s.opts.Log
	user, err := s.opts.Client.GetUser(ctx)
	if err != nil {
		log.Warn("Can't fetch user info for speed upgrade: %v", err)
		return
	}
	level := user.Level
	xcoin := user.Xcoin

	for level < s.opts.Bot.MaxSpeedLevel {
		if !s.sleep(ctx, s.opts.Timing.SpeedDelay()) {
			return
		}
		cost := 60000 * math.Pow(1.1, float64(level))
		if xcoin <= cost {
			log.Warn("No enough coin to up speed")
			return
		}
		log.Info("Upgrading speed: level %d to level %d...", level, level+1)
		if err := s.opts.Client.UpgradeSpeed(ctx); err != nil {
			log.Warn("Speed upgrade failed: %v", err)
			return
		}
		log.Success("Upgrading speed up to level %d successfully", level+1)
		level++
		xcoin -= cost
	}
}

func (s *Session) handleGame(ctx context.Context) {
	log := s.opts.Log
	restores, err := s.opts.Client.RestoresStatus(ctx)
	if err != nil {
		log.Warn("Can't fetch remaining draws: %v", err)
		return
	}

	for curr, draws := 1, restores.Draws; draws > 0; curr, draws = curr+1, draws-1 {
		if !s.sleep(ctx, s.opts.Timing.GameStartDelay()) {
			return
		}
		log.Info("Starting game %d...", curr)
		start, err := s.opts.Client.StartGame(ctx)
		if err != nil || start.Result != "OK" {
			continue
		}
		if !s.sleep(ctx, s.opts.Timing.GameSettleDelay()) {
			return
		}
		number := stopNumberMin + s.rand.Intn(stopNumberMax-stopNumberMin+1)
		stop, err := s.opts.Client.StopGame(ctx, number)
		if err != nil {
			continue
		}
		switch {
		case !stop.Status:
			log.Warn("Game %d stopped failed - SpaceX broken | No reward: %.2f", curr, stop.Xcoin)
		case stop.Info != nil && stop.Info.Name != "":
			log.Success("Game %d stopped successfully! | Reward: %.2f | Got new pet %s", curr, stop.Xcoin, stop.Info.Name)
		default:
			log.Success("Game %d stopped successfully! | Reward: %.2f", curr, stop.Xcoin)
		}
	}
}

func (s *Session) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
