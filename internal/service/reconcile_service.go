package service

import (
	"context"
	"time"

	"github.com/golang/glog"

	"campus_feed/internal/model"
	"campus_feed/internal/pkg"
	"campus_feed/internal/repository/docstore"
)

// CounterReconciler 定期用关系数组的真实大小校正冗余计数
type CounterReconciler struct {
	store    docstore.Store
	locker   Locker
	interval time.Duration
}

func NewCounterReconciler(store docstore.Store, locker Locker, interval time.Duration) *CounterReconciler {
	if locker == nil {
		locker = NopLocker{}
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CounterReconciler{store: store, locker: locker, interval: interval}
}

// ReconcilerRun 对账定时任务启动器
func (r *CounterReconciler) ReconcilerRun(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := r.ReconcileOnce(ctx); err != nil {
				glog.Errorf("reconcile: %v", err)
			}
		}
	}
}

// ReconcileOnce 对账一次，返回修正的文档数
func (r *CounterReconciler) ReconcileOnce(ctx context.Context) (int, error) {
	posts, err := r.reconcilePosts(ctx)
	if err != nil {
		return posts, err
	}
	events, err := r.reconcileEvents(ctx)
	return posts + events, err
}

func postCounts(p *model.Post) map[string]any {
	want := map[string]any{}
	if p.LikeCount != len(p.Likes) {
		want["likeCount"] = len(p.Likes)
	}
	if p.CommentCount != len(p.Comments) {
		want["commentCount"] = len(p.Comments)
	}
	return want
}

func eventCounts(e *model.Event) map[string]any {
	want := map[string]any{}
	if e.RSVPCount != len(e.RSVPs) {
		want["rsvpCount"] = len(e.RSVPs)
	}
	return want
}

func (r *CounterReconciler) reconcilePosts(ctx context.Context) (int, error) {
	docs, err := r.store.Find(ctx, docstore.Query{Collection: docstore.CollectionPosts})
	if err != nil {
		return 0, err
	}
	posts, err := docstore.DecodeAll[model.Post](docs)
	if err != nil {
		return 0, err
	}
	fixed := 0
	for i := range posts {
		if len(postCounts(&posts[i])) == 0 {
			continue
		}
		ok, err := repair(ctx, r, docstore.CollectionPosts, posts[i].ID, postCounts)
		if err != nil {
			glog.Warningf("reconcile post %s: %v", posts[i].ID, err)
			continue
		}
		if ok {
			fixed++
		}
	}
	return fixed, nil
}

func (r *CounterReconciler) reconcileEvents(ctx context.Context) (int, error) {
	docs, err := r.store.Find(ctx, docstore.Query{Collection: docstore.CollectionEvents})
	if err != nil {
		return 0, err
	}
	events, err := docstore.DecodeAll[model.Event](docs)
	if err != nil {
		return 0, err
	}
	fixed := 0
	for i := range events {
		if len(eventCounts(&events[i])) == 0 {
			continue
		}
		ok, err := repair(ctx, r, docstore.CollectionEvents, events[i].ID, eventCounts)
		if err != nil {
			glog.Warningf("reconcile event %s: %v", events[i].ID, err)
			continue
		}
		if ok {
			fixed++
		}
	}
	return fixed, nil
}

// repair 加锁后重新读取再比较，避免覆盖扫描之后发生的切换
func repair[D any](ctx context.Context, r *CounterReconciler, collection, id string, diff func(*D) map[string]any) (bool, error) {
	unlock, err := r.locker.Lock(ctx, collection, id)
	if err != nil {
		return false, err
	}
	defer unlock()

	doc, err := r.store.Get(ctx, collection, id)
	if err != nil {
		return false, err
	}
	var d D
	if err = doc.Decode(&d); err != nil {
		return false, err
	}
	set := diff(&d)
	if len(set) == 0 {
		return false, nil
	}
	if err = r.store.Update(ctx, collection, id, docstore.Update{Set: set}); err != nil {
		return false, err
	}
	glog.Infof("reconcile %s/%s: %v", collection, id, set)
	pkg.CounterRepairs.WithLabelValues(collection).Inc()
	return true, nil
}
