package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/reshetovitsme/catfacts-bot/internal/host"
	"github.com/reshetovitsme/catfacts-bot/internal/modules/fact/client"
	"github.com/reshetovitsme/catfacts-bot/internal/modules/fact/plugin"
	factRepo "github.com/reshetovitsme/catfacts-bot/internal/modules/fact/repository"
	"github.com/reshetovitsme/catfacts-bot/internal/modules/fact/service"
	userRepo "github.com/reshetovitsme/catfacts-bot/internal/modules/user/repository"
	userService "github.com/reshetovitsme/catfacts-bot/internal/modules/user/service"
	"github.com/reshetovitsme/catfacts-bot/internal/scheduler"
	"github.com/reshetovitsme/catfacts-bot/internal/shared/config"
	apperrors "github.com/reshetovitsme/catfacts-bot/internal/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminID  int64 = 1
	userID   int64 = 2
	chatID   int64 = 555
	randomID int64 = -1001
)

type outgoing struct {
	chatID int64
	text   string
}

// fakeTelegram records sendMessage calls made by the bot client
type fakeTelegram struct {
	mu   sync.Mutex
	sent []outgoing
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/sendMessage") {
		var msg outgoing
		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			var body struct {
				ChatID int64  `json:"chat_id"`
				Text   string `json:"text"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			msg = outgoing{chatID: body.ChatID, text: body.Text}
		} else {
			_ = r.ParseMultipartForm(1 << 20)
			id, _ := strconv.ParseInt(r.FormValue("chat_id"), 10, 64)
			msg = outgoing{chatID: id, text: r.FormValue("text")}
		}
		f.mu.Lock()
		f.sent = append(f.sent, msg)
		f.mu.Unlock()
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`))
}

func (f *fakeTelegram) messages() []outgoing {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]outgoing(nil), f.sent...)
}

type fixture struct {
	handler  *Handler
	bot      *bot.Bot
	plugin   *plugin.Plugin
	repo     factRepo.Repository
	telegram *fakeTelegram
}

func newFixture(t *testing.T, facts ...string) *fixture {
	t.Helper()

	tg := &fakeTelegram{}
	tgSrv := httptest.NewServer(tg)
	t.Cleanup(tgSrv.Close)

	next := 0
	var factsMu sync.Mutex
	factsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		factsMu.Lock()
		fact := facts[min(next, len(facts)-1)]
		next++
		factsMu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"fact": fact})
	}))
	t.Cleanup(factsSrv.Close)

	b, err := bot.New("123:test", bot.WithSkipGetMe(), bot.WithServerURL(tgSrv.URL))
	require.NoError(t, err)

	gw := NewGateway(map[string]int64{"#random": randomID})
	gw.SetBot(b)

	p := plugin.New(host.New(gw, scheduler.New()), service.New(client.New(factsSrv.URL, time.Second), 0))
	p.Configure(nil)

	storage := t.TempDir()
	repo, err := factRepo.NewFileStorage(storage)
	require.NoError(t, err)
	users, err := userRepo.NewFileStorage(storage)
	require.NoError(t, err)

	cfg := &config.Config{AdminUsers: []int64{adminID}}
	return &fixture{
		handler:  New(cfg, p, userService.New(users), repo),
		bot:      b,
		plugin:   p,
		repo:     repo,
		telegram: tg,
	}
}

func message(from int64, text string) *models.Update {
	return &models.Update{Message: &models.Message{
		Text: text,
		Chat: models.Chat{ID: chatID},
		From: &models.User{ID: from, Username: "user" + strconv.FormatInt(from, 10)},
	}}
}

func TestHandleCatfact(t *testing.T) {
	f := newFixture(t, "Fact one", "Fact two", "Fact three")

	f.handler.handleCatfact(context.Background(), f.bot, message(userID, "/catfact 2"))

	assert.Equal(t, []outgoing{{chatID, "Fact one"}, {chatID, "Fact two"}}, f.telegram.messages())
}

func TestHandleCatfactInvalidArgument(t *testing.T) {
	f := newFixture(t, "Fact one")

	f.handler.handleCatfact(context.Background(), f.bot, message(userID, "/catfact abc"))

	assert.Empty(t, f.telegram.messages())
}

func TestHandleCatfactTrigger(t *testing.T) {
	f := newFixture(t, "Triggered fact")

	f.handler.handleCatfactTrigger(context.Background(), f.bot, message(userID, "/catfact_trigger"))
	assert.Equal(t, []outgoing{{chatID, "❌ Unauthorized"}}, f.telegram.messages())

	f.handler.handleCatfactTrigger(context.Background(), f.bot, message(adminID, "/catfact_trigger"))
	msgs := f.telegram.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, outgoing{randomID, "Triggered fact"}, msgs[1])
}

func TestHandleCatfactConfig(t *testing.T) {
	f := newFixture(t, "fact")
	ctx := context.Background()

	f.handler.handleCatfactConfig(ctx, f.bot, message(adminID, "/catfact_config max_facts 2"))
	assert.Equal(t, 2, f.plugin.Config().MaxFacts)

	stored, err := f.repo.GetOverrides(plugin.Name)
	require.NoError(t, err)
	require.NotNil(t, stored.MaxFacts)
	assert.Equal(t, 2, *stored.MaxFacts)

	f.handler.handleCatfactConfig(ctx, f.bot, message(adminID, "/catfact_config fact_channel #cats"))
	assert.Equal(t, "#cats", f.plugin.Config().FactChannel)
	assert.Equal(t, 2, f.plugin.Config().MaxFacts)

	f.handler.handleCatfactConfig(ctx, f.bot, message(adminID, "/catfact_config max_facts 0"))
	assert.Equal(t, 2, f.plugin.Config().MaxFacts)

	f.handler.handleCatfactConfig(ctx, f.bot, message(adminID, "/catfact_config reset"))
	assert.Equal(t, 5, f.plugin.Config().MaxFacts)
	_, err = f.repo.GetOverrides(plugin.Name)
	assert.True(t, errors.Is(err, apperrors.ErrConfigNotFound))
}

func TestHandleCatfactConfigUnauthorized(t *testing.T) {
	f := newFixture(t, "fact")

	f.handler.handleCatfactConfig(context.Background(), f.bot, message(userID, "/catfact_config max_facts 2"))

	assert.Equal(t, 5, f.plugin.Config().MaxFacts)
	assert.Equal(t, []outgoing{{chatID, "❌ Unauthorized"}}, f.telegram.messages())
}

func TestStartupOverrides(t *testing.T) {
	f := newFixture(t, "fact")

	o, err := f.handler.StartupOverrides()
	require.NoError(t, err)
	assert.True(t, o.IsEmpty())

	f.handler.handleCatfactConfig(context.Background(), f.bot, message(adminID, "/catfact_config fact_period_seconds 0"))

	o, err = f.handler.StartupOverrides()
	require.NoError(t, err)
	require.NotNil(t, o.FactPeriodSeconds)
	assert.Equal(t, 0, *o.FactPeriodSeconds)
}

func TestMatchCommand(t *testing.T) {
	tcases := []struct {
		text    string
		command string
		want    bool
	}{
		{text: "/catfact", command: "catfact", want: true},
		{text: "/catfact 3", command: "catfact", want: true},
		{text: "/catfact@CatFactsBot 3", command: "catfact", want: true},
		{text: "/catfact_trigger", command: "catfact", want: false},
		{text: "/catfact_trigger", command: "catfact_trigger", want: true},
		{text: "catfact", command: "catfact", want: false},
	}

	for _, tc := range tcases {
		got := matchCommand(tc.command)(&models.Update{Message: &models.Message{Text: tc.text}})
		assert.Equal(t, tc.want, got, tc.text)
	}
	assert.False(t, matchCommand("catfact")(&models.Update{}))
}

func TestSplitCommand(t *testing.T) {
	cmd, args := splitCommand("/CatFact@bot   4 ")
	assert.Equal(t, "catfact", cmd)
	assert.Equal(t, "4", args)
}
