// Package bot is the Telegram presentation layer. It collects reminder
// fields through guided conversations and renders the pending and paid
// views; every mutation goes through the lifecycle controller.
package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"payremind/internal/config"
	"payremind/internal/model"
	"payremind/internal/recurrence"
	"payremind/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageName
	stageValue
	stageDate
	stageTime
)

const (
	btnSkip   = "⏭️ Skip"
	btnCancel = "⏪ Cancel"
)

type conversationState struct {
	stage   conversationStage
	input   service.Input
	editing *model.Reminder // nil when creating
}

// Bot aggregates the Telegram API with the lifecycle controller.
type Bot struct {
	api           *tgbotapi.BotAPI
	lifecycle     *service.Lifecycle
	digest        *service.Digest
	config        *config.Config
	conversations map[int64]*conversationState
	mu            sync.Mutex
}

func New(api *tgbotapi.BotAPI, lifecycle *service.Lifecycle, digest *service.Digest, cfg *config.Config) *Bot {
	return &Bot{
		api:           api,
		lifecycle:     lifecycle,
		digest:        digest,
		config:        cfg,
		conversations: make(map[int64]*conversationState),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.Message == nil {
			continue
		}
		msg := update.Message
		if msg.Chat == nil || !msg.Chat.IsPrivate() {
			continue
		}
		if b.config.Telegram.ChatID != 0 && msg.Chat.ID != b.config.Telegram.ChatID {
			continue
		}
		if err := b.handleMessage(ctx, msg); err != nil {
			log.Printf("handle message: %v", err)
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if !msg.IsCommand() && isCancelInput(msg.Text) {
		b.clearConversation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", msg.Chat.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if b.hasConversation(msg.Chat.ID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "I didn't get that. Use /add to create a reminder or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "add":
		return b.startAddConversation(msg)
	case "edit":
		return b.startEditConversation(msg)
	case "list":
		return b.handleList(msg)
	case "paid":
		return b.handlePaid(msg)
	case "pay":
		return b.handlePay(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "next":
		return b.handleNext(ctx, msg)
	case "digest":
		return b.handleDigest(msg)
	case "cancel":
		b.clearConversation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := ""
	if msg.From != nil {
		name = strings.TrimSpace(msg.From.FirstName)
	}
	if name == "" {
		name = "there"
	}

	text := fmt.Sprintf(
		"👋 Hi, %s!\n<b>I track your payment reminders so nothing slips past its due date.</b>\n\nCommands:\n"+
			"• /add — create a payment reminder\n"+
			"• /list — pending payments\n"+
			"• /paid — paid payments\n"+
			"• /pay &lt;id&gt; — mark a payment done\n"+
			"• /next &lt;id&gt; — mark paid and roll forward one month\n"+
			"• /edit &lt;id&gt; — change a reminder\n"+
			"• /delete &lt;id&gt; — remove a reminder\n"+
			"• /digest — summary of pending payments\n"+
			"• /cancel — abort the current input",
		escape(name),
	)

	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Help</b>\n" +
		"• /add — step-by-step reminder creation\n" +
		"• /list — pending payments with their ids\n" +
		"• /paid — what you already paid\n" +
		"• /pay &lt;id&gt; — mark as paid (e.g. /pay 3)\n" +
		"• /next &lt;id&gt; — pay and reschedule one month later\n" +
		"• /edit &lt;id&gt; — change name, amount or due date\n" +
		"• /delete &lt;id&gt; — remove a reminder for good\n" +
		"• /digest — today's pending summary\n" +
		"• /cancel — abort the current input"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) startAddConversation(msg *tgbotapi.Message) error {
	b.setConversation(msg.Chat.ID, &conversationState{stage: stageName})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New payment reminder.\n<b>Step 1:</b> what is it for?", cancelKeyboard())
}

func (b *Bot) startEditConversation(msg *tgbotapi.Message) error {
	reminder, err := b.reminderFromArgs(msg)
	if err != nil {
		return b.sendText(msg.Chat.ID, escape(err.Error()))
	}

	b.setConversation(msg.Chat.ID, &conversationState{stage: stageName, editing: &reminder})
	return b.sendWithReplyMarkup(msg.Chat.ID,
		fmt.Sprintf("✏️ Editing <b>%s</b>.\n<b>Step 1:</b> new name? («Skip» keeps it)", escape(reminder.Name)),
		skipKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.Chat.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	editing := state.editing != nil

	switch state.stage {
	case stageName:
		if editing && isSkipInput(text) {
			state.input.Name = state.editing.Name
		} else {
			state.input.Name = text
		}
		state.stage = stageValue
		prompt := "💰 <b>Step 2:</b> amount to pay?"
		if editing {
			prompt += fmt.Sprintf(" («Skip» keeps %.2f)", state.editing.Value)
			return b.sendWithReplyMarkup(msg.Chat.ID, prompt, skipKeyboard())
		}
		return b.sendWithReplyMarkup(msg.Chat.ID, prompt, cancelKeyboard())
	case stageValue:
		if editing && isSkipInput(text) {
			state.input.Value = strconv.FormatFloat(state.editing.Value, 'f', -1, 64)
		} else {
			state.input.Value = text
		}
		state.stage = stageDate
		prompt := "📆 <b>Step 3:</b> due date, like <code>2025-11-30</code>?"
		if editing {
			prompt += fmt.Sprintf(" («Skip» keeps %s)", state.editing.DueAt.In(b.config.Location).Format(recurrence.DateLayout))
			return b.sendWithReplyMarkup(msg.Chat.ID, prompt, skipKeyboard())
		}
		return b.sendWithReplyMarkup(msg.Chat.ID, prompt, cancelKeyboard())
	case stageDate:
		if editing && isSkipInput(text) {
			state.input.Date = state.editing.DueAt.In(b.config.Location).Format(recurrence.DateLayout)
		} else {
			state.input.Date = text
		}
		state.stage = stageTime
		return b.sendWithReplyMarkup(msg.Chat.ID,
			fmt.Sprintf("⏰ <b>Step 4:</b> at what time, like <code>09:30</code>? («Skip» uses %s)", b.config.Notify.DefaultTime),
			skipKeyboard())
	case stageTime:
		if isSkipInput(text) {
			if editing {
				state.input.Clock = state.editing.DueAt.In(b.config.Location).Format(recurrence.ClockLayout)
			} else {
				state.input.Clock = b.config.Notify.DefaultTime
			}
		} else {
			state.input.Clock = text
		}
		b.clearConversation(msg.Chat.ID)
		return b.finishConversation(ctx, msg.Chat.ID, state)
	default:
		b.clearConversation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "Dialog reset. Try again with /add.")
	}
}

// finishConversation runs the controller operation. A validation failure is
// reported without anything having been saved, so the user just retries.
func (b *Bot) finishConversation(ctx context.Context, chatID int64, state *conversationState) error {
	var (
		reminder *model.Reminder
		err      error
	)
	if state.editing != nil {
		reminder, err = b.lifecycle.Edit(ctx, *state.editing, state.input)
	} else {
		reminder, err = b.lifecycle.Create(ctx, state.input)
	}

	switch {
	case errors.Is(err, recurrence.ErrInvalidInput):
		return b.sendWithReplyMarkup(chatID, fmt.Sprintf("🚫 %s\nNothing was saved — try again with /add or /edit.", escape(err.Error())), tgbotapi.NewRemoveKeyboard(true))
	case errors.Is(err, service.ErrNotifyDegraded):
		log.Printf("notify degraded: %v", err)
		return b.sendConfirmation(chatID, *reminder, "⚠️ Saved, but I could not arm its notification. It is still tracked.")
	case err != nil:
		return b.sendText(chatID, fmt.Sprintf("Could not save the reminder: %s", escape(err.Error())))
	}

	return b.sendConfirmation(chatID, *reminder, "✅ <b>Reminder saved</b>")
}

func (b *Bot) sendConfirmation(chatID int64, r model.Reminder, header string) error {
	var summary strings.Builder
	summary.WriteString(header + "\n")
	summary.WriteString(fmt.Sprintf("• <b>ID:</b> %d\n", r.ID))
	summary.WriteString(fmt.Sprintf("• <b>Name:</b> %s\n", escape(r.Name)))
	summary.WriteString(fmt.Sprintf("• <b>Amount:</b> %.2f\n", r.Value))
	summary.WriteString(fmt.Sprintf("• <b>Due:</b> %s\n", recurrence.Format(r.DueAt, b.config.Location, "2006-01-02 15:04")))

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(summary.String()))
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) handleList(msg *tgbotapi.Message) error {
	pending := b.lifecycle.Pending()
	if len(pending) == 0 {
		return b.sendText(msg.Chat.ID, "Nothing pending. Add one with /add.")
	}

	var builder strings.Builder
	builder.WriteString("🔥 <b>Pending payments</b>\n")
	for _, r := range pending {
		builder.WriteString(b.formatReminder(r))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handlePaid(msg *tgbotapi.Message) error {
	paid := b.lifecycle.Paid()
	if len(paid) == 0 {
		return b.sendText(msg.Chat.ID, "No paid reminders yet.")
	}

	var builder strings.Builder
	builder.WriteString("✅ <b>Paid</b>\n")
	for _, r := range paid {
		builder.WriteString(b.formatReminder(r))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handlePay(ctx context.Context, msg *tgbotapi.Message) error {
	reminder, err := b.pendingFromArgs(msg)
	if err != nil {
		return b.sendText(msg.Chat.ID, escape(err.Error()))
	}

	if err := b.lifecycle.Pay(ctx, reminder); err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not mark as paid: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ «%s» marked as paid.", escape(reminder.Name)))
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	reminder, err := b.reminderFromArgs(msg)
	if err != nil {
		return b.sendText(msg.Chat.ID, escape(err.Error()))
	}

	if err := b.lifecycle.Delete(ctx, reminder); err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not delete: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 «%s» deleted.", escape(reminder.Name)))
}

func (b *Bot) handleNext(ctx context.Context, msg *tgbotapi.Message) error {
	reminder, err := b.reminderFromArgs(msg)
	if err != nil {
		return b.sendText(msg.Chat.ID, escape(err.Error()))
	}

	fresh, err := b.lifecycle.Reschedule(ctx, reminder)
	switch {
	case errors.Is(err, service.ErrNotifyDegraded):
		log.Printf("notify degraded: %v", err)
		return b.sendConfirmation(msg.Chat.ID, *fresh, "⚠️ Rolled forward, but its notification could not be armed.")
	case err != nil:
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not reschedule: %s", escape(err.Error())))
	}
	return b.sendConfirmation(msg.Chat.ID, *fresh, fmt.Sprintf("♻️ «%s» paid and rolled forward", escape(reminder.Name)))
}

func (b *Bot) handleDigest(msg *tgbotapi.Message) error {
	text := b.digest.Summary(time.Now())
	if text == "" {
		return b.sendText(msg.Chat.ID, "Nothing pending — no digest today.")
	}
	return b.sendText(msg.Chat.ID, escape(text))
}

func (b *Bot) formatReminder(r model.Reminder) string {
	due := r.DueAt.In(b.config.Location)
	icon := "✅"
	if !r.PaymentDone {
		now := time.Now().In(b.config.Location)
		switch {
		case now.After(due):
			icon = "⚠️"
		case due.Sub(now) <= 48*time.Hour:
			icon = "⏳"
		default:
			icon = "🟢"
		}
	}
	return fmt.Sprintf("%s <b>%d</b> · %s — %.2f · due %s\n", icon, r.ID, escape(r.Name), r.Value, due.Format("2006-01-02 15:04"))
}

// reminderFromArgs resolves the /command argument against both views.
func (b *Bot) reminderFromArgs(msg *tgbotapi.Message) (model.Reminder, error) {
	id, err := parseIDArg(msg)
	if err != nil {
		return model.Reminder{}, err
	}
	for _, r := range b.lifecycle.Pending() {
		if r.ID == id {
			return r, nil
		}
	}
	for _, r := range b.lifecycle.Paid() {
		if r.ID == id {
			return r, nil
		}
	}
	return model.Reminder{}, fmt.Errorf("reminder %d not found, check /list", id)
}

// pendingFromArgs resolves the /command argument against the pending view only.
func (b *Bot) pendingFromArgs(msg *tgbotapi.Message) (model.Reminder, error) {
	id, err := parseIDArg(msg)
	if err != nil {
		return model.Reminder{}, err
	}
	for _, r := range b.lifecycle.Pending() {
		if r.ID == id {
			return r, nil
		}
	}
	return model.Reminder{}, fmt.Errorf("pending reminder %d not found, check /list", id)
}

func parseIDArg(msg *tgbotapi.Message) (uint, error) {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return 0, fmt.Errorf("give me a reminder id, like /%s 3", msg.Command())
	}
	id, err := strconv.ParseUint(args, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("the reminder id must be a number")
	}
	return uint(id), nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) setConversation(chatID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[chatID] = state
}

func (b *Bot) getConversation(chatID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[chatID]
}

func (b *Bot) hasConversation(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[chatID]
	return ok
}

func (b *Bot) clearConversation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, chatID)
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancel)),
	)
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.OneTimeKeyboard = true
	return kb
}

func isSkipInput(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	return t == strings.ToLower(btnSkip) || t == "skip" || t == "-"
}

func isCancelInput(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	return t == strings.ToLower(btnCancel) || t == "cancel"
}

func escape(s string) string {
	return html.EscapeString(s)
}
