package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"staybook/internal/client"
	"staybook/internal/config"
	"staybook/internal/database"
	"staybook/internal/models"
	"staybook/internal/repository"
	"staybook/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	chatID int64
	text   string
}

type fakeMessenger struct {
	mu          sync.Mutex
	updatesChan chan tgbotapi.Update
	messages    []sentMessage
	documents   []tgbotapi.DocumentConfig
}

func (m *fakeMessenger) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc, ok := c.(tgbotapi.DocumentConfig); ok {
		m.documents = append(m.documents, doc)
	}
	return tgbotapi.Message{}, nil
}

func (m *fakeMessenger) SendMessage(chatID int64, text string) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, sentMessage{chatID: chatID, text: text})
	return tgbotapi.Message{}, nil
}

func (m *fakeMessenger) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updatesChan
}

func (m *fakeMessenger) GetSelf() tgbotapi.User {
	return tgbotapi.User{UserName: "staybook_test_bot"}
}

func (m *fakeMessenger) StopReceivingUpdates() {}

func (m *fakeMessenger) last() sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return sentMessage{}
	}
	return m.messages[len(m.messages)-1]
}

func (m *fakeMessenger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[int64]*models.User
}

func (f *fakeUsers) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user %d: %w", id, database.ErrNotFound)
}

func (f *fakeUsers) GetUserByTelegramChatID(_ context.Context, chatID int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.TelegramChatID == chatID {
			return u, nil
		}
	}
	return nil, fmt.Errorf("chat %d: %w", chatID, database.ErrNotFound)
}

func (f *fakeUsers) LinkTelegram(_ context.Context, username string, chatID int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	username = strings.TrimPrefix(username, "@")
	for _, u := range f.users {
		if u.Username == username {
			u.TelegramChatID = chatID
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, database.ErrNotFound)
}

type fakeBookings struct {
	today    models.Date
	hosted   map[int64][]*models.Booking
	bySpot   map[int64][]*models.Booking
	checkIns map[models.Date][]*models.Booking
	owners   map[int64]int64
}

func (f *fakeBookings) Today() models.Date { return f.today }

func (f *fakeBookings) ListHostBookings(_ context.Context, ownerID int64) ([]*models.Booking, error) {
	return f.hosted[ownerID], nil
}

func (f *fakeBookings) ListCheckIns(_ context.Context, day models.Date) ([]*models.Booking, error) {
	return f.checkIns[day], nil
}

func (f *fakeBookings) ListSpotBookings(_ context.Context, callerID, spotID int64) (*service.SpotBookings, error) {
	owner, ok := f.owners[spotID]
	if !ok {
		return nil, fmt.Errorf("spot %d: %w", spotID, database.ErrNotFound)
	}
	if owner != callerID {
		return &service.SpotBookings{}, nil
	}
	return &service.SpotBookings{Owner: true, Full: f.bySpot[spotID]}, nil
}

type fakeSpots struct {
	spots map[int64]*models.Spot
}

func (f *fakeSpots) GetSpot(_ context.Context, id int64) (*models.Spot, error) {
	if s, ok := f.spots[id]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("spot %d: %w", id, database.ErrNotFound)
}

func (f *fakeSpots) ListOwnerSpots(_ context.Context, ownerID int64) ([]*models.Spot, error) {
	var out []*models.Spot
	for _, s := range f.spots {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	return out, nil
}

type testBot struct {
	*Bot
	tg       *fakeMessenger
	users    *fakeUsers
	bookings *fakeBookings
	state    *service.StateService
}

const (
	hostChat  = 500
	guestChat = 600
)

func newTestBot(t *testing.T, tgCfg config.TelegramConfig) *testBot {
	t.Helper()

	logger := zerolog.Nop()
	today := models.NewDate(2030, 3, 10)
	spot := &models.Spot{ID: 7, OwnerID: 1, Name: "Lake House", City: "Tahoe", Country: "USA", Price: 120}
	upcoming := &models.Booking{
		ID: 11, SpotID: 7, UserID: 2,
		StartDate: models.NewDate(2030, 3, 11), EndDate: models.NewDate(2030, 3, 14),
		Spot: spot.Summary(),
	}

	tg := &fakeMessenger{updatesChan: make(chan tgbotapi.Update, 4)}
	users := &fakeUsers{users: map[int64]*models.User{
		1: {ID: 1, FirstName: "Hana", LastName: "Host", Username: "host"},
		2: {ID: 2, FirstName: "Gus", LastName: "Guest", Username: "guest"},
	}}
	bookings := &fakeBookings{
		today:    today,
		hosted:   map[int64][]*models.Booking{1: {upcoming}},
		bySpot:   map[int64][]*models.Booking{7: {upcoming}},
		checkIns: map[models.Date][]*models.Booking{today.AddDays(1): {upcoming}},
		owners:   map[int64]int64{7: 1},
	}
	spots := &fakeSpots{spots: map[int64]*models.Spot{7: spot}}
	state := service.NewStateService(repository.NewMemoryStateRepository(time.Hour), &logger)

	cfg := &config.Config{
		Telegram: tgCfg,
		Exports:  config.ExportConfig{Path: t.TempDir()},
	}
	b, err := NewBot(tg, cfg, state, users, bookings, spots, NewMetrics(prometheus.NewRegistry()), &logger)
	require.NoError(t, err)

	return &testBot{Bot: b, tg: tg, users: users, bookings: bookings, state: state}
}

func message(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: chatID},
		Chat: &tgbotapi.Chat{ID: chatID},
		Text: text,
	}
}

func (tb *testBot) send(chatID int64, text string) sentMessage {
	ctx := zerolog.Nop().WithContext(context.Background())
	tb.handleMessage(ctx, message(chatID, text))
	return tb.tg.last()
}

func TestNewBotValidation(t *testing.T) {
	_, err := NewBot(nil, &config.Config{}, nil, nil, nil, nil, nil, nil)
	assert.Error(t, err)

	_, err = NewBot(&fakeMessenger{}, nil, nil, nil, nil, nil, nil, nil)
	assert.Error(t, err)

	b, err := NewBot(&fakeMessenger{}, &config.Config{App: config.AppConfig{Timezone: "Nowhere/Land"}}, nil, nil, nil, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, b.loc)
}

func TestBotStart(t *testing.T) {
	tb := newTestBot(t, config.TelegramConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tb.Start(ctx)
		close(done)
	}()

	tb.tg.updatesChan <- tgbotapi.Update{Message: message(123, "/start")}

	assert.Eventually(t, func() bool {
		return strings.Contains(tb.tg.last().text, "Your chat id is 123")
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestStartGreetsLinkedHost(t *testing.T) {
	tb := newTestBot(t, config.TelegramConfig{})
	tb.users.users[1].TelegramChatID = hostChat

	reply := tb.send(hostChat, "/start")
	assert.Contains(t, reply.text, "Welcome back, Hana")
	assert.Contains(t, reply.text, "@host")
}

func TestLinkWithArgument(t *testing.T) {
	tb := newTestBot(t, config.TelegramConfig{})

	reply := tb.send(hostChat, "/link @host")
	assert.Equal(t, int64(hostChat), reply.chatID)
	assert.Contains(t, reply.text, "Linked to @host")
	assert.Equal(t, int64(hostChat), tb.users.users[1].TelegramChatID)
}

func TestLinkTwoStep(t *testing.T) {
	tb := newTestBot(t, config.TelegramConfig{})
	ctx := context.Background()

	reply := tb.send(hostChat, "/link")
	assert.Contains(t, reply.text, "Send your staybook username")

	state, err := tb.state.GetChatState(ctx, hostChat)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, models.StepAwaitingProfile, state.Step)

	reply = tb.send(hostChat, "nobody")
	assert.Contains(t, reply.text, `No profile with username "nobody"`)
	state, err = tb.state.GetChatState(ctx, hostChat)
	require.NoError(t, err)
	require.NotNil(t, state, "step survives a typo")

	reply = tb.send(hostChat, "host")
	assert.Contains(t, reply.text, "Linked to @host")
	state, err = tb.state.GetChatState(ctx, hostChat)
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestCancelClearsStep(t *testing.T) {
	tb := newTestBot(t, config.TelegramConfig{})

	tb.send(hostChat, "/link")
	reply := tb.send(hostChat, "/cancel")
	assert.Equal(t, "Cancelled.", reply.text)

	reply = tb.send(hostChat, "host")
	assert.Equal(t, helpText, reply.text, "plain text without a step shows help")
	assert.Zero(t, tb.users.users[1].TelegramChatID)
}

func TestHostCommandsRequireLink(t *testing.T) {
	tb := newTestBot(t, config.TelegramConfig{})

	for _, cmd := range []string{"/spots", "/bookings", "/export 7"} {
		reply := tb.send(guestChat, cmd)
		assert.Contains(t, reply.text, "not linked yet", cmd)
	}
}

func TestSpotsAndBookings(t *testing.T) {
	tb := newTestBot(t, config.TelegramConfig{})
	tb.users.users[1].TelegramChatID = hostChat

	reply := tb.send(hostChat, "/spots")
	assert.Contains(t, reply.text, "#7 Lake House, Tahoe (120.00 per night)")

	reply = tb.send(hostChat, "/bookings@staybook_test_bot")
	assert.Contains(t, reply.text, "#11 Lake House: 2030-03-11 to 2030-03-14 (3 nights), Gus Guest")

	tb.users.users[2].TelegramChatID = guestChat
	reply = tb.send(guestChat, "/bookings")
	assert.Equal(t, "No upcoming stays at your spots.", reply.text)
	reply = tb.send(guestChat, "/spots")
	assert.Equal(t, "You have no spots listed.", reply.text)
}

func TestExport(t *testing.T) {
	tb := newTestBot(t, config.TelegramConfig{})
	tb.users.users[1].TelegramChatID = hostChat
	tb.users.users[2].TelegramChatID = guestChat

	t.Run("Usage", func(t *testing.T) {
		reply := tb.send(hostChat, "/export")
		assert.Equal(t, "Usage: /export <spotId>", reply.text)
	})

	t.Run("NotOwner", func(t *testing.T) {
		reply := tb.send(guestChat, "/export 7")
		assert.Contains(t, reply.text, "Only the spot owner")
		assert.Empty(t, tb.tg.documents)
	})

	t.Run("UnknownSpot", func(t *testing.T) {
		reply := tb.send(hostChat, "/export 99")
		assert.Contains(t, reply.text, "Nothing found")
	})

	t.Run("Owner", func(t *testing.T) {
		tb.send(hostChat, "/export #7")
		require.Len(t, tb.tg.documents, 1)
		doc := tb.tg.documents[0]
		assert.Equal(t, int64(hostChat), doc.ChatID)
		assert.Equal(t, "Lake House: 1 bookings", doc.Caption)

		path, ok := doc.File.(tgbotapi.FilePath)
		require.True(t, ok)
		_, err := os.Stat(string(path))
		assert.NoError(t, err)
	})
}

func TestRateLimit(t *testing.T) {
	tb := newTestBot(t, config.TelegramConfig{RateLimitMessages: 1, RateLimitWindow: time.Minute})

	tb.processUpdate(context.Background(), tgbotapi.Update{Message: message(hostChat, "/help")})
	assert.Equal(t, helpText, tb.tg.last().text)

	tb.processUpdate(context.Background(), tgbotapi.Update{Message: message(hostChat, "/help")})
	assert.Contains(t, tb.tg.last().text, "too fast")

	tb.processUpdate(context.Background(), tgbotapi.Update{Message: message(guestChat, "/help")})
	assert.Equal(t, helpText, tb.tg.last().text, "quota is per chat")
}

func TestProcessUpdateIgnoresNonMessages(t *testing.T) {
	tb := newTestBot(t, config.TelegramConfig{})

	tb.processUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{ID: "x"}})
	assert.Zero(t, tb.tg.count())
}

func TestWithRecovery(t *testing.T) {
	tb := newTestBot(t, config.TelegramConfig{})

	assert.NotPanics(t, func() {
		tb.withRecovery(func() { panic("boom") })
	})
	assert.Equal(t, float64(1), testutil.ToFloat64(tb.metrics.ErrorsTotal))
}

func TestSendCheckInReminders(t *testing.T) {
	tb := newTestBot(t, config.TelegramConfig{})

	tb.sendCheckInReminders(context.Background())
	assert.Zero(t, tb.tg.count(), "unlinked host gets nothing")

	tb.users.users[1].TelegramChatID = hostChat
	tb.sendCheckInReminders(context.Background())

	require.Equal(t, 1, tb.tg.count())
	reply := tb.tg.last()
	assert.Equal(t, int64(hostChat), reply.chatID)
	assert.Contains(t, reply.text, "Check-ins tomorrow (2030-03-11)")
	assert.Contains(t, reply.text, "Gus Guest")
	assert.Equal(t, float64(1), testutil.ToFloat64(tb.metrics.RemindersSent))
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in      string
		command string
		args    string
		ok      bool
	}{
		{"/start", "start", "", true},
		{"/link  @host ", "link", "@host", true},
		{"/Export@staybook_bot 7", "export", "7", true},
		{"hello", "", "", false},
		{"/", "", "", false},
	}
	for _, tt := range tests {
		command, args, ok := parseCommand(strings.TrimSpace(tt.in))
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.command, command, tt.in)
		assert.Equal(t, tt.args, args, tt.in)
	}
}

func TestTimeUntilNext(t *testing.T) {
	now := time.Date(2030, 3, 10, 8, 30, 0, 0, time.UTC)
	assert.Equal(t, 30*time.Minute, timeUntilNext(now, 9, 0))
	assert.Equal(t, 23*time.Hour+30*time.Minute, timeUntilNext(now, 8, 0))
	assert.Equal(t, 24*time.Hour, timeUntilNext(now, 8, 30))
}

func newAvailabilityAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/spots/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "7" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Spot couldn't be found"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(models.Spot{ID: 7, OwnerID: 1, Name: "Lake House"})
	})
	mux.HandleFunc("POST /api/v1/spots/{id}/availability", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.Header.Get("x-user-id"))
		assert.Equal(t, "bot-key", r.Header.Get("x-api-key"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["startDate"] == "2030-03-14" {
			_, _ = w.Write([]byte(`{"available":true,"outcome":"no_conflict"}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"available": false,
			"outcome": "conflict",
			"errors": {"startDate": "Start date conflicts with an existing booking"},
			"conflicts": [{"bookingId": 11, "startDate": "2030-03-11", "endDate": "2030-03-14", "shapes": ["starts_within_existing"]}]
		}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckAvailability(t *testing.T) {
	tb := newTestBot(t, config.TelegramConfig{})
	tb.users.users[1].TelegramChatID = hostChat

	t.Run("NotConfigured", func(t *testing.T) {
		reply := tb.send(hostChat, "/check 7 2030-03-12 2030-03-13")
		assert.Equal(t, "Availability checks are not configured.", reply.text)
	})

	tb.UseAPI(client.New(newAvailabilityAPI(t).URL, "bot-key", ""))

	t.Run("Usage", func(t *testing.T) {
		assert.Equal(t, checkUsage, tb.send(hostChat, "/check 7").text)
		assert.Equal(t, checkUsage, tb.send(hostChat, "/check 7 tomorrow 2030-03-13").text)
	})

	t.Run("RequiresLink", func(t *testing.T) {
		reply := tb.send(guestChat, "/check 7 2030-03-12 2030-03-13")
		assert.Contains(t, reply.text, "not linked")
	})

	t.Run("Free", func(t *testing.T) {
		reply := tb.send(hostChat, "/check 7 2030-03-14 2030-03-16")
		assert.Equal(t, "✅ Lake House is free from 2030-03-14 to 2030-03-16.", reply.text)
	})

	t.Run("Taken", func(t *testing.T) {
		reply := tb.send(hostChat, "/check #7 2030-03-12 2030-03-16")
		assert.Contains(t, reply.text, "❌ Lake House cannot be booked")
		assert.Contains(t, reply.text, "Start date conflicts with an existing booking")
		assert.Contains(t, reply.text, "Overlaps booking #11 (2030-03-11 to 2030-03-14)")
	})

	t.Run("UnknownSpot", func(t *testing.T) {
		reply := tb.send(hostChat, "/check 99 2030-03-12 2030-03-13")
		assert.Contains(t, reply.text, "Nothing found")
	})
}
