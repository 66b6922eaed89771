package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang/glog"

	"campus_feed/internal/model"
	"campus_feed/internal/pkg"
	"campus_feed/internal/repository/docstore"
	"campus_feed/internal/repository/redis"
)

// Notifier 报名成功后的通知，失败不影响报名结果
type Notifier interface {
	RSVPConfirmed(ctx context.Context, ev model.Event, userID, userName string)
}

type NopNotifier struct{}

func (NopNotifier) RSVPConfirmed(context.Context, model.Event, string, string) {}

// NotifyGuard 同一用户同一活动的确认邮件去重
type NotifyGuard interface {
	Reserve(ctx context.Context, eventID, uid string) error
	MarkSent(ctx context.Context, eventID, uid string) error
	Release(ctx context.Context, eventID, uid string) error
}

type MailFunc func(cfg pkg.SMTPConfig, to, subject, htmlBody string) error

// MailNotifier 异步发送报名确认邮件，收件地址取自用户资料
type MailNotifier struct {
	store docstore.Store
	guard NotifyGuard
	cfg   pkg.SMTPConfig
	send  MailFunc
	sync  bool
}

func NewMailNotifier(store docstore.Store, guard NotifyGuard, cfg pkg.SMTPConfig) *MailNotifier {
	return &MailNotifier{store: store, guard: guard, cfg: cfg, send: pkg.SendEmail}
}

func (n *MailNotifier) RSVPConfirmed(ctx context.Context, ev model.Event, userID, userName string) {
	ctx = context.WithoutCancel(ctx)
	if n.sync {
		n.deliver(ctx, ev, userID, userName)
		return
	}
	go n.deliver(ctx, ev, userID, userName)
}

func (n *MailNotifier) deliver(ctx context.Context, ev model.Event, userID, userName string) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	doc, err := n.store.Get(ctx, docstore.CollectionUsers, userID)
	if err != nil {
		glog.Warningf("rsvp mail: load profile %s: %v", userID, err)
		return
	}
	var p model.UserProfile
	if err = doc.Decode(&p); err != nil || p.Email == "" {
		return
	}

	if n.guard != nil {
		if err = n.guard.Reserve(ctx, ev.ID, userID); err != nil {
			if !errors.Is(err, redis.ErrNotifyDuplicate) {
				glog.Warningf("rsvp mail: reserve %s/%s: %v", ev.ID, userID, err)
			}
			return
		}
	}

	html := pkg.RSVPConfirmationHTML(userName, ev.Title, ev.Location, ev.Date)
	if err = n.send(n.cfg, p.Email, "You're going: "+ev.Title, html); err != nil {
		glog.Warningf("rsvp mail to %s: %v", p.Email, err)
		if n.guard != nil {
			_ = n.guard.Release(ctx, ev.ID, userID)
		}
		return
	}
	if n.guard != nil {
		if err = n.guard.MarkSent(ctx, ev.ID, userID); err != nil {
			glog.Warningf("rsvp mail: mark sent %s/%s: %v", ev.ID, userID, err)
		}
	}
}
