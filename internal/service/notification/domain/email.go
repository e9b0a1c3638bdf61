package domain

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	reminder "returnremind/internal/service/reminder/domain"
)

var ErrUnknownReminderType = errors.New("unknown reminder type")

// Email 是一封渲染完成、待发送的纯文本邮件
type Email struct {
	To      string
	Subject string
	Body    string
}

type template struct {
	subject string // 以商品名结尾
	intro   string
}

var templates = map[reminder.NotificationType]template{
	reminder.NotificationReminder7d: {
		subject: "7 days left to return: ",
		intro:   "This is a friendly reminder that you have 7 days left to return your purchase.",
	},
	reminder.NotificationReminder3d: {
		subject: "3 days left to return: ",
		intro:   "Just 3 days remain to return your purchase. Now is a good time to decide.",
	},
	reminder.NotificationReminder1d: {
		subject: "Last day tomorrow: ",
		intro:   "Your return window closes TOMORROW! Don't forget to return your item if needed.",
	},
	reminder.NotificationFinalDay: {
		subject: "Return deadline TODAY: ",
		intro:   "TODAY is the last day to return your purchase. Act now if you need to make a return!",
	},
}

// templateFor 优先使用类型自带的文案；配置里新增的提醒类型按提前天数套用通用文案
func templateFor(ev reminder.ReminderEvent) (template, bool) {
	if tpl, ok := templates[ev.Type]; ok {
		return tpl, true
	}
	switch {
	case ev.DaysBefore < 0:
		return template{}, false
	case ev.DaysBefore == 0:
		return templates[reminder.NotificationFinalDay], true
	case ev.DaysBefore == 1:
		return templates[reminder.NotificationReminder1d], true
	}
	return template{
		subject: fmt.Sprintf("%d days left to return: ", ev.DaysBefore),
		intro:   fmt.Sprintf("This is a friendly reminder that you have %d days left to return your purchase.", ev.DaysBefore),
	}, true
}

// RenderReminder 把提醒事件渲染为邮件，收件人是事件中的用户
func RenderReminder(ev reminder.ReminderEvent) (Email, error) {
	tpl, ok := templateFor(ev)
	if !ok {
		return Email{}, errors.Wrapf(ErrUnknownReminderType, "%q", ev.Type)
	}
	if ev.OwnerID == "" {
		return Email{}, errors.Errorf("reminder %s has no recipient", ev.NotificationID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", ev.OwnerID)
	b.WriteString(tpl.intro)
	b.WriteString("\n\n")
	b.WriteString("Purchase Details:\n")
	b.WriteString("----------------------------\n")
	fmt.Fprintf(&b, "Item: %s\n", ev.ItemName)
	fmt.Fprintf(&b, "Merchant: %s\n", ev.MerchantName)
	fmt.Fprintf(&b, "Purchased: %s\n", ev.PurchaseDate)
	fmt.Fprintf(&b, "Return Deadline: %s\n", ev.ReturnDeadline)
	b.WriteString("----------------------------\n\n")
	b.WriteString("Happy shopping!\n")
	b.WriteString("- ReturnRemind\n")

	return Email{
		To:      ev.OwnerID,
		Subject: tpl.subject + ev.ItemName,
		Body:    b.String(),
	}, nil
}
