package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus_feed/internal/config"
	"campus_feed/internal/feed"
	"campus_feed/internal/handler"
	"campus_feed/internal/pkg"
	"campus_feed/internal/repository/docstore"
	"campus_feed/internal/repository/mongo"
	"campus_feed/internal/repository/mysql"
	"campus_feed/internal/repository/redis"
	"campus_feed/internal/router"
	"campus_feed/internal/service"
	"campus_feed/internal/session"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := flag.String("config", "", "path to yaml config")
	flag.Parse()
	defer glog.Flush()

	cfg, err := config.Load(*configPath)
	if err != nil {
		glog.Exitf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 文档库
	var store docstore.Store
	switch cfg.Store.Backend {
	case "memory":
		glog.Warning("using in-memory document store, data is lost on exit")
		store = docstore.NewMemoryStore()
	default:
		client, err := mongo.Connect(ctx, cfg.Store.MongoURI)
		if err != nil {
			glog.Exitf("%v", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		ms := mongo.NewStore(client.Database(cfg.Store.MongoDB))
		if err = ms.EnsureIndexes(ctx); err != nil {
			glog.Warningf("ensure indexes: %v", err)
		}
		store = ms
	}

	// MySQL：账号和 outbox
	db, err := mysql.Open(cfg.MySQL.DSN)
	if err != nil {
		glog.Exitf("%v", err)
	}
	if err = mysql.AutoMigrate(db); err != nil {
		glog.Exitf("auto migrate: %v", err)
	}

	// 连接redis
	rdb, err := redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		glog.Exitf("redis: %v", err)
	}
	defer rdb.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pkg.MustRegister(reg)

	outboxRepo := &mysql.OutboxRepository{DB: db}
	tokens := &redis.TokenRepository{RDB: rdb}

	var locker service.Locker = service.NopLocker{}
	if cfg.Jobs.ToggleMode == service.ToggleModeLocked {
		locker = service.NewRedisLocker(&redis.DistLock{RDB: rdb})
	}
	glog.Infof("toggle mode: %s", cfg.Jobs.ToggleMode)

	smtp := pkg.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}
	var notifier service.Notifier = service.NopNotifier{}
	if smtp.Enabled() {
		notifier = service.NewMailNotifier(store, &redis.NotifyRepository{RDB: rdb}, smtp)
	}

	recorder := service.NewOutboxRecorder(outboxRepo)
	posts := service.NewPostService(store, service.WithLocker(locker), service.WithRecorder(recorder))
	events := service.NewEventService(store,
		service.WithLocker(locker), service.WithRecorder(recorder), service.WithNotifier(notifier))
	profiles := service.NewProfileService(store)

	observer := session.NewObserver()
	defer observer.Close()
	issuer := pkg.NewTokenIssuer(cfg.Auth.AccessSecret, cfg.Auth.RefreshSecret)
	auth := service.NewAuthService(&mysql.AccountRepository{DB: db}, tokens, issuer, profiles, observer)

	// 后台任务：outbox 投递、计数对账
	var sender service.Sender = service.LogSender
	if len(cfg.Kafka.Brokers) > 0 {
		producer := pkg.NewKafkaProducer(pkg.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		defer producer.Close()
		sender = service.KafkaSender(producer)
	}
	go service.NewOutboxRelayer(outboxRepo, sender, cfg.Jobs.RelayInterval).Run(ctx)
	go service.NewCounterReconciler(store, locker, cfg.Jobs.ReconcileInterval).ReconcilerRun(ctx)

	// 每个用户的视图缓存，登录态变化时丢弃
	postViews := feed.NewRegistry[*feed.PostView](cfg.Server.ViewTTL)
	eventViews := feed.NewRegistry[*feed.EventView](cfg.Server.ViewTTL)
	profileViews := feed.NewRegistry[*feed.ProfileView](cfg.Server.ViewTTL).WithOwnerLimit(cfg.Server.ProfileViewLimit)
	for _, sub := range []*session.Subscription{
		postViews.Watch(observer),
		eventViews.Watch(observer),
		profileViews.Watch(observer),
	} {
		defer sub.Close()
	}
	logSub := observer.Subscribe(func(c session.Change) {
		if c.SignedOut() {
			glog.Infof("session ended: %s", c.UID)
		}
	})
	defer logSub.Close()
	dropViews := func(uid string) {
		postViews.DropOwner(uid)
		eventViews.DropOwner(uid)
		profileViews.DropOwner(uid)
	}

	r := router.InitRouter(router.Deps{
		User:        handler.NewUserHandler(auth, profiles, posts, profileViews, cfg.Auth.ExternalSecret, dropViews),
		Post:        handler.NewPostHandler(posts, profiles, postViews),
		Event:       handler.NewEventHandler(events, profiles, eventViews),
		Issuer:      issuer,
		Tokens:      tokens,
		Gatherer:    reg,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Server.ListenAddress,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		glog.Infof("listening on %s", cfg.Server.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			glog.Errorf("http server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	glog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("shutdown: %v", err)
		os.Exit(1)
	}
}
