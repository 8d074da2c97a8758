package bot

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/Fi44er/deposit_bot/internal/audit"
	"github.com/Fi44er/deposit_bot/internal/models"
	"github.com/Fi44er/deposit_bot/internal/repository"
	"github.com/Fi44er/deposit_bot/internal/service"
	"github.com/Fi44er/deposit_bot/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
)

const (
	adminID int64 = 1001
	userID  int64 = 42
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {}

func (f *fakeAPI) messagesTo(chatID int64) []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok && m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeAPI) edits() []tgbotapi.EditMessageTextConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.EditMessageTextConfig
	for _, c := range f.requests {
		if e, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeAPI) callbackAnswers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.requests {
		if a, ok := c.(tgbotapi.CallbackConfig); ok {
			out = append(out, a.Text)
		}
	}
	return out
}

func (f *fakeAPI) contains(chatID int64, fragment string) bool {
	for _, m := range f.messagesTo(chatID) {
		if strings.Contains(m.Text, fragment) {
			return true
		}
	}
	return false
}

type harness struct {
	bot  *Bot
	api  *fakeAPI
	repo *repository.FileRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := utils.NopLogger()
	repo, err := repository.NewFileRepository(filepath.Join(t.TempDir(), "data.json"), models.DefaultCatalog(), logger)
	if err != nil {
		t.Fatal(err)
	}
	api := &fakeAPI{updates: make(chan tgbotapi.Update, 16)}
	svc := service.NewService(repo, NewTelegramNotifier(api), audit.Discard(), service.Settings{
		AdminIDs:          []string{formatID(adminID)},
		DepositAmount:     decimal.NewFromInt(100),
		MinTxIDLength:     10,
		MaxCommitAttempts: 3,
	}, logger)
	return &harness{bot: NewBot(api, svc, logger), api: api, repo: repo}
}

func textUpdate(from int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from, FirstName: "Test", UserName: "tester"},
		Chat:      &tgbotapi.Chat{ID: from},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		command := strings.SplitN(text, " ", 2)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(command)}}
	}
	return tgbotapi.Update{Message: msg}
}

func callbackUpdate(from int64, data string) tgbotapi.Update {
	return callbackOn(from, 77, data)
}

func callbackOn(from int64, messageID int, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb",
		From: &tgbotapi.User{ID: from},
		Message: &tgbotapi.Message{
			MessageID: messageID,
			Chat:      &tgbotapi.Chat{ID: from},
		},
		Data: data,
	}}
}

func (h *harness) run(t *testing.T, updates ...tgbotapi.Update) {
	t.Helper()
	for _, u := range updates {
		h.bot.HandleUpdate(context.Background(), u)
	}
}

func (h *harness) submitDeposit(t *testing.T, txID string) {
	t.Helper()
	h.run(t,
		textUpdate(userID, "/start"),
		textUpdate(userID, labelTopUps),
		textUpdate(userID, "Bitcoin (BTC) Deposit"),
		textUpdate(userID, txID),
	)
}

func adminButtons(t *testing.T, api *fakeAPI) [][]tgbotapi.InlineKeyboardButton {
	t.Helper()
	msgs := api.messagesTo(adminID)
	if len(msgs) == 0 {
		t.Fatal("admin was not notified")
	}
	keyboard, ok := msgs[len(msgs)-1].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("expected inline keyboard, got %T", msgs[len(msgs)-1].ReplyMarkup)
	}
	return keyboard.InlineKeyboard
}

func TestStart_ConsumesUntilClosed(t *testing.T) {
	h := newHarness(t)
	h.api.updates <- textUpdate(userID, "/start")
	close(h.api.updates)

	h.bot.Start(context.Background())

	if !h.api.contains(userID, "Welcome") {
		t.Errorf("expected welcome message")
	}
}

func TestDepositFlow_EndToEnd(t *testing.T) {
	h := newHarness(t)
	h.submitDeposit(t, "abc1234567")

	if !h.api.contains(userID, "submitted for admin review") {
		t.Errorf("user did not get a submission confirmation")
	}
	conv := h.bot.getConversation(userID)
	if conv.Stage != service.StageIdle || conv.Menu != menuTopUps {
		t.Errorf("unexpected conversation after submission %+v", conv)
	}

	buttons := adminButtons(t, h.api)
	approve := *buttons[0][0].CallbackData
	h.run(t, callbackUpdate(adminID, approve))

	if !h.api.contains(userID, "New balance: $100.00") {
		t.Errorf("user did not get the approval with the new balance")
	}
	edits := h.api.edits()
	if len(edits) == 0 || !strings.Contains(edits[len(edits)-1].Text, "approved") {
		t.Errorf("admin message was not edited to show the approval")
	}

	doc, _ := h.repo.Load(context.Background())
	if !doc.Account(formatID(userID)).TotalConfirmed.Equal(decimal.NewFromInt(100)) {
		t.Errorf("balance not credited")
	}

	h.run(t, textUpdate(userID, labelAvailableBalance))
	if !h.api.contains(userID, "Balance: 💲100.00") {
		t.Errorf("available balance not shown")
	}
}

func TestDepositStage_InvalidIDKeepsWaiting(t *testing.T) {
	h := newHarness(t)
	h.submitDeposit(t, "short")

	if !h.api.contains(userID, "Invalid transaction ID format") {
		t.Errorf("expected invalid format message")
	}
	if conv := h.bot.getConversation(userID); conv.Stage != service.StageAwaitingDeposit || conv.Coin != "Bitcoin" {
		t.Errorf("expected to keep waiting for a txid, got %+v", conv)
	}
}

func TestDepositStage_BackEscapes(t *testing.T) {
	h := newHarness(t)
	h.run(t,
		textUpdate(userID, "/start"),
		textUpdate(userID, labelTopUps),
		textUpdate(userID, "Bitcoin (BTC) Deposit"),
		textUpdate(userID, labelBack),
	)

	conv := h.bot.getConversation(userID)
	if conv.Stage != service.StageIdle || conv.Menu != menuMain {
		t.Errorf("back should leave the deposit stage, got %+v", conv)
	}
	if len(h.api.messagesTo(adminID)) != 0 {
		t.Errorf("navigation text must not be submitted as a txid")
	}
}

func TestNoteCapture(t *testing.T) {
	h := newHarness(t)
	h.submitDeposit(t, "abc1234567")

	note := *adminButtons(t, h.api)[1][0].CallbackData
	h.run(t, callbackUpdate(adminID, note))
	if conv := h.bot.getConversation(adminID); conv.Stage != service.StageAwaitingNote {
		t.Fatalf("expected note capture, got %+v", conv)
	}

	h.run(t, textUpdate(adminID, "/addgift looks like a command"))
	if conv := h.bot.getConversation(adminID); conv.Stage != service.StageIdle {
		t.Fatalf("a command must end note capture, got %+v", conv)
	}

	h.run(t, callbackUpdate(adminID, note), textUpdate(adminID, "verified on chain"))
	if conv := h.bot.getConversation(adminID); conv.Stage != service.StageIdle {
		t.Errorf("capture state not cleared: %+v", conv)
	}
	if !h.api.contains(adminID, "Note added") {
		t.Errorf("admin did not get a note confirmation")
	}

	doc, _ := h.repo.Load(context.Background())
	_, tx := doc.FindTransaction(formatID(userID), "abc1234567")
	if tx.AdminNote != "verified on chain" || tx.Status != models.StatusPending {
		t.Errorf("unexpected transaction %+v", tx)
	}
}

func TestCallback_UnauthorizedAndMalformed(t *testing.T) {
	h := newHarness(t)
	h.submitDeposit(t, "abc1234567")
	approve := *adminButtons(t, h.api)[0][0].CallbackData

	h.run(t, callbackUpdate(userID, approve))
	answers := h.api.callbackAnswers()
	if len(answers) == 0 || answers[len(answers)-1] != "⛔ Unauthorized" {
		t.Errorf("unexpected callback answers %v", answers)
	}

	h.run(t, callbackUpdate(adminID, "garbage"))
	edits := h.api.edits()
	if len(edits) == 0 || edits[len(edits)-1].Text != "⚠️ Invalid callback data" {
		t.Errorf("malformed payload not reported")
	}

	doc, _ := h.repo.Load(context.Background())
	_, tx := doc.FindTransaction(formatID(userID), "abc1234567")
	if tx.Status != models.StatusPending {
		t.Errorf("transaction changed to %s", tx.Status)
	}
}

func TestAdminCommands(t *testing.T) {
	h := newHarness(t)

	h.run(t, textUpdate(userID, "/addgift Steam"))
	if !h.api.contains(userID, "⛔ Unauthorized") {
		t.Errorf("non-admin was not refused")
	}

	h.run(t,
		textUpdate(adminID, "/addgift Steam"),
		textUpdate(adminID, "/setwallet Cash App $cashtag"),
		textUpdate(adminID, "/admin"),
	)
	if !h.api.contains(adminID, "Gift card 'Steam' added") {
		t.Errorf("gift card not confirmed")
	}
	if !h.api.contains(adminID, "Cash App wallet set to $cashtag") {
		t.Errorf("wallet not confirmed")
	}
	if conv := h.bot.getConversation(adminID); conv.Menu != menuAdmin {
		t.Errorf("expected admin menu, got %+v", conv)
	}

	doc, _ := h.repo.Load(context.Background())
	if doc.Wallets["Cash App"] != "$cashtag" {
		t.Errorf("wallet not stored: %v", doc.Wallets)
	}
}

func TestShowPending_Pagination(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < pendingPerPage+2; i++ {
		h.submitDeposit(t, strings.Repeat("a", 10)+string(rune('a'+i)))
	}

	h.run(t, textUpdate(adminID, "/showpending"))
	msgs := h.api.messagesTo(adminID)
	last := msgs[len(msgs)-1]
	if !strings.Contains(last.Text, "page 1 of 2") {
		t.Fatalf("unexpected first page %q", last.Text)
	}
	rows := last.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup).InlineKeyboard
	next := rows[len(rows)-1][0]
	if !strings.HasPrefix(*next.CallbackData, pendingPagePrefix) {
		t.Fatalf("expected pagination button, got %q", *next.CallbackData)
	}

	h.run(t, callbackUpdate(adminID, *next.CallbackData))
	edits := h.api.edits()
	if len(edits) == 0 || !strings.Contains(edits[len(edits)-1].Text, "page 2 of 2") {
		t.Errorf("second page not shown")
	}
}

func TestShowPending_DecisionRedrawsPage(t *testing.T) {
	h := newHarness(t)
	h.submitDeposit(t, "first-tx-0001")
	h.submitDeposit(t, "second-tx-0002")

	h.run(t, textUpdate(adminID, "/showpending"))
	h.api.mu.Lock()
	pageID := len(h.api.sent)
	h.api.mu.Unlock()
	rows := adminButtons(t, h.api)
	approveFirst := *rows[0][0].CallbackData

	h.run(t, callbackOn(adminID, pageID, approveFirst))
	edits := h.api.edits()
	if len(edits) == 0 {
		t.Fatal("page was not redrawn")
	}
	last := edits[len(edits)-1]
	if last.MessageID != pageID {
		t.Errorf("edited message %d, want page %d", last.MessageID, pageID)
	}
	if !strings.Contains(last.Text, "Pending Transactions") || strings.Contains(last.Text, "first-tx-0001") || !strings.Contains(last.Text, "second-tx-0002") {
		t.Errorf("unexpected redrawn page %q", last.Text)
	}
	answers := h.api.callbackAnswers()
	if got := answers[len(answers)-1]; got != "✅ Transaction approved." {
		t.Errorf("unexpected callback answer %q", got)
	}
	noteRows := adminButtons(t, h.api)
	if want := "note_42_first-tx-0001"; *noteRows[0][0].CallbackData != want {
		t.Errorf("expected note button %q, got %q", want, *noteRows[0][0].CallbackData)
	}

	doc, err := h.repo.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, tx := doc.FindTransaction(formatID(userID), "first-tx-0001"); tx == nil || tx.Status != models.StatusApproved {
		t.Errorf("expected first-tx-0001 approved, got %+v", tx)
	}

	rejectSecond := *last.ReplyMarkup.InlineKeyboard[0][1].CallbackData
	h.run(t, callbackOn(adminID, pageID, rejectSecond))
	edits = h.api.edits()
	if got := edits[len(edits)-1].Text; got != "✅ No pending transactions." {
		t.Errorf("expected empty page, got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdefghijkl", 10, "abcdefghij…"},
		{strings.Repeat("é", 12), 10, strings.Repeat("é", 10) + "…"},
		{"ab€€€€€€€€€€", 10, "ab€€€€€€€€…"},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.n)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.in, tt.n)
		}
	}
}

func TestWithConversation_PanicClearsCapture(t *testing.T) {
	h := newHarness(t)
	h.bot.setConversation(adminID, service.Conversation{Menu: menuAdmin}.AwaitNote("42", "abc1234567"))

	func() {
		defer func() { _ = recover() }()
		h.bot.withConversation(adminID, func(service.Conversation) service.Conversation {
			panic("boom")
		})
	}()

	conv := h.bot.getConversation(adminID)
	if conv.Stage != service.StageIdle || conv.Menu != menuAdmin {
		t.Errorf("panic left conversation %+v", conv)
	}
}

func TestSplitWalletArgs(t *testing.T) {
	tests := []struct {
		args, coin, address string
	}{
		{"Bitcoin bc1qxyz", "Bitcoin", "bc1qxyz"},
		{"Cash App $tag", "Cash App", "$tag"},
		{"Bitcoin", "", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		coin, address := splitWalletArgs(tt.args)
		if coin != tt.coin || address != tt.address {
			t.Errorf("splitWalletArgs(%q) = %q, %q", tt.args, coin, address)
		}
	}
}

func TestPairs(t *testing.T) {
	got := pairs([]string{"a", "b", "c"})
	if len(got) != 2 || len(got[0]) != 2 || len(got[1]) != 1 || got[1][0] != "c" {
		t.Errorf("unexpected rows %v", got)
	}
}
