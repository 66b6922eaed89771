package service

import (
	"campus_feed/internal/pkg"
)

type options struct {
	locker   Locker
	recorder Recorder
	notifier Notifier
}

type Option func(*options)

// WithLocker 为点赞/报名切换加锁，默认不加锁
func WithLocker(l Locker) Option {
	return func(o *options) {
		if l != nil {
			o.locker = l
		}
	}
}

// WithRecorder 记录互动事件（outbox）
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithNotifier 报名成功后的通知
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		if n != nil {
			o.notifier = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		locker:   NopLocker{},
		recorder: NopRecorder{},
		notifier: NopNotifier{},
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// observe 按操作统计成功/失败次数
func observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	pkg.Mutations.WithLabelValues(op, result).Inc()
}
