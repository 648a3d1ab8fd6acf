package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/eventbot/internal/domain"
	"github.com/tazhate/eventbot/internal/ics"
)

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())

	switch cmd {
	case "start":
		b.cmdStart(chatID)
	case "help":
		b.cmdHelp(chatID)
	case "add":
		b.cmdAdd(chatID, args)
	case "list":
		b.cmdList(chatID)
	case "today":
		b.cmdToday(chatID)
	case "archived":
		b.cmdArchived(chatID)
	case "delete":
		b.cmdDelete(chatID, args)
	case "export":
		b.cmdExport(chatID)
	default:
		b.SendMessage(chatID, "Unknown command. /help for the command list")
	}
}

func (b *Bot) cmdStart(chatID int64) {
	b.SendMessage(chatID, "👋 Hi! I keep track of your events and remind you before they start.\n\n/help — command reference")
}

func (b *Bot) cmdHelp(chatID int64) {
	text := `<b>Commands:</b>

<b>Events</b>
/add 14.09.2026 15:00-16:00 Dentist !remind 30,10 !repeat weekly
/list — upcoming events
/today — today's events
/archived — past events
/delete ID — delete an event

<b>Other</b>
/export — download everything as .ics
/help — this reference

💡 Reminders are minutes before start. Repeat takes hourly, daily, weekly, biweekly, monthly or a number of minutes.`

	b.SendMessage(chatID, text)
}

func (b *Bot) cmdAdd(chatID int64, args string) {
	if args == "" {
		b.SendMessage(chatID, "Format: /add 14.09.2026 15:00 Dentist !remind 30,10")
		return
	}

	event, err := b.parseAdd(args)
	if err != nil {
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}

	event, err = b.eventService.Create(event)
	if err != nil {
		b.SendMessage(chatID, "❌ Error: "+err.Error())
		return
	}

	text := fmt.Sprintf("✅ Event added\n\n#%d <b>%s</b>", event.ID, event.DisplayTitle())
	if len(event.ReminderIntervals) > 0 {
		parts := make([]string, len(event.ReminderIntervals))
		for i, m := range event.ReminderIntervals {
			parts[i] = strconv.Itoa(m)
		}
		text += fmt.Sprintf("\n🔔 Reminders: %s min before", strings.Join(parts, ", "))
	}
	b.SendMessage(chatID, text)
}

// parseAdd turns "DD.MM.YYYY HH:MM[-HH:MM] Title [!remind 10,60] [!repeat daily] [| notes]"
// into an event.
func (b *Bot) parseAdd(args string) (*domain.Event, error) {
	event := &domain.Event{}

	// Notes after a pipe
	if idx := strings.Index(args, "|"); idx >= 0 {
		event.Notes = strings.TrimSpace(args[idx+1:])
		args = strings.TrimSpace(args[:idx])
	}

	var err error
	if args, err = b.extractRemind(args, event); err != nil {
		return nil, err
	}
	if args, err = b.extractRepeat(args, event); err != nil {
		return nil, err
	}

	fields := strings.Fields(args)
	if len(fields) < 2 {
		return nil, fmt.Errorf("need at least a date and a start time: /add 14.09.2026 15:00 Title")
	}

	day, err := time.ParseInLocation("02.01.2006", fields[0], b.cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected DD.MM.YYYY", fields[0])
	}
	event.EventDate = day

	timeSpec := fields[1]
	startSpec, endSpec := timeSpec, ""
	if idx := strings.Index(timeSpec, "-"); idx >= 0 {
		startSpec, endSpec = timeSpec[:idx], timeSpec[idx+1:]
	}

	start, err := time.ParseInLocation("15:04", startSpec, b.cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid start time %q, expected HH:MM", startSpec)
	}
	event.StartTime = start

	if endSpec != "" {
		end, err := time.ParseInLocation("15:04", endSpec, b.cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid end time %q, expected HH:MM", endSpec)
		}
		event.EndTime = &end
		event.UseEndTime = true
	}

	event.Title = strings.TrimSpace(strings.Join(fields[2:], " "))
	return event, nil
}

func (b *Bot) extractRemind(args string, event *domain.Event) (string, error) {
	idx := strings.Index(args, "!remind")
	if idx < 0 {
		return args, nil
	}

	rest := strings.TrimSpace(args[idx+len("!remind"):])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", fmt.Errorf("!remind needs minute offsets: !remind 30,10")
	}

	for _, part := range strings.Split(fields[0], ",") {
		m, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return "", fmt.Errorf("invalid reminder offset %q", part)
		}
		event.ReminderIntervals = append(event.ReminderIntervals, m)
	}

	remainder := args[:idx] + strings.Join(fields[1:], " ")
	return strings.TrimSpace(remainder), nil
}

func (b *Bot) extractRepeat(args string, event *domain.Event) (string, error) {
	idx := strings.Index(args, "!repeat")
	if idx < 0 {
		return args, nil
	}

	rest := strings.TrimSpace(args[idx+len("!repeat"):])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", fmt.Errorf("!repeat needs a frequency: !repeat daily")
	}

	freq, err := parseRepeatFrequency(fields[0])
	if err != nil {
		return "", err
	}
	event.RepeatReminder = true
	event.RepeatFrequency = freq

	remainder := args[:idx] + strings.Join(fields[1:], " ")
	return strings.TrimSpace(remainder), nil
}

func parseRepeatFrequency(spec string) (int, error) {
	switch strings.ToLower(spec) {
	case "hourly":
		return domain.RepeatHourly, nil
	case "daily":
		return domain.RepeatDaily, nil
	case "weekly":
		return domain.RepeatWeekly, nil
	case "biweekly":
		return domain.RepeatBiweekly, nil
	case "monthly":
		return domain.RepeatMonthly, nil
	}

	minutes, err := strconv.Atoi(spec)
	if err != nil || minutes <= 0 {
		return 0, fmt.Errorf("invalid repeat frequency %q", spec)
	}
	return minutes, nil
}

func (b *Bot) cmdList(chatID int64) {
	events, err := b.eventService.ListActive()
	if err != nil {
		b.SendMessage(chatID, "❌ Error: "+err.Error())
		return
	}
	b.SendMessage(chatID, "<b>📋 Upcoming:</b>\n\n"+b.eventService.FormatEventList(events))
}

func (b *Bot) cmdToday(chatID int64) {
	events, err := b.eventService.ListForDay(time.Now().In(b.cfg.Timezone))
	if err != nil {
		b.SendMessage(chatID, "❌ Error: "+err.Error())
		return
	}
	b.SendMessage(chatID, "<b>📅 Today:</b>\n\n"+b.eventService.FormatEventList(events))
}

func (b *Bot) cmdArchived(chatID int64) {
	events, err := b.eventService.ListArchived()
	if err != nil {
		b.SendMessage(chatID, "❌ Error: "+err.Error())
		return
	}
	b.SendMessage(chatID, "<b>🗄 Past events:</b>\n\n"+b.eventService.FormatEventList(events))
}

func (b *Bot) cmdDelete(chatID int64, args string) {
	if args == "" {
		b.SendMessage(chatID, "Specify the event ID: /delete 1")
		return
	}

	id, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		b.SendMessage(chatID, "Invalid event ID")
		return
	}

	if err := b.eventService.Delete(id); err != nil {
		b.SendMessage(chatID, "❌ Error: "+err.Error())
		return
	}
	b.SendMessage(chatID, "🗑 Event #"+args+" deleted")
}

func (b *Bot) cmdExport(chatID int64) {
	events, err := b.eventService.ListActive()
	if err != nil {
		b.SendMessage(chatID, "❌ Error: "+err.Error())
		return
	}
	if len(events) == 0 {
		b.SendMessage(chatID, "Nothing to export")
		return
	}

	// All events can be filtered out when none resolves to a start instant,
	// and go-ical refuses to encode an empty VCALENDAR.
	cal := ics.Export(events, b.cfg.Timezone)
	if len(cal.Children) == 0 {
		b.SendMessage(chatID, "Nothing to export")
		return
	}

	data, err := ics.Encode(cal)
	if err != nil {
		b.SendMessage(chatID, "❌ Error: "+err.Error())
		return
	}

	if err := b.sendDocument(chatID, "events.ics", data); err != nil {
		b.SendMessage(chatID, "❌ Error: "+err.Error())
	}
}
