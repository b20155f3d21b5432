package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"PulseChat/global"
	"PulseChat/logger"
	adminhandler "PulseChat/module/admin/handler"
	adminservice "PulseChat/module/admin/service"
	chathandler "PulseChat/module/chat/handler"
	chatservice "PulseChat/module/chat/service"
	chatstore "PulseChat/module/chat/store"
	userhandler "PulseChat/module/user/handler"
	userservice "PulseChat/module/user/service"
	userstore "PulseChat/module/user/store"
	"PulseChat/service/chat"
	"PulseChat/service/chat/handlers"
	"PulseChat/service/mgo"
	"PulseChat/service/storage/object"
	"PulseChat/tools/security"

	"github.com/gin-gonic/gin"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := global.ConfigAll(ctx); err != nil {
		logger.Errorf("[boot] config failed: %v", err)
		return
	}

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := mgo.WaitReady(waitCtx); err != nil {
		logger.Errorf("[boot] mongo not ready: %v", err)
		return
	}
	db := mgo.Manager().DB()

	objects, err := object.NewDiskStore(global.Global.UploadDir, global.Global.UploadBase)
	if err != nil {
		logger.Errorf("[boot] object store: %v", err)
		return
	}

	userRepo := userstore.NewRepo(db)
	chatRepo := chatstore.NewRepo(db)

	reg := chat.NewRegistry()
	presence := chat.NewPresence()
	fanout := chat.NewFanout(reg, 8, 256, 2*time.Second)
	defer fanout.Close()

	orch := chatservice.NewOrchestrator(fanout)
	chatSvc := chatservice.NewService(chatRepo, userRepo, objects, orch)

	jwtOpts := security.DefaultOptions(global.GetJwtSecret())
	jwtOpts.TTL = global.Global.SessionTTL
	userSvc := userservice.NewService(userRepo, chatSvc, jwtOpts)
	adminSvc := adminservice.NewService(userRepo, chatRepo, userSvc)

	server := chat.NewServer(chat.Config{}, reg, presence, fanout, userSvc, chatRepo)
	server.Register(handlers.NewMessageHandler(chatSvc, userRepo))
	server.Register(handlers.NewTypingStartHandler())
	server.Register(handlers.NewTypingStopHandler())
	server.Register(handlers.NewMembershipJoinedHandler())
	server.Register(handlers.NewMembershipLeftHandler())

	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api/v1")
	userhandler.New(userSvc, objects).Routes(api)
	chathandler.New(chatSvc, objects).Routes(api)
	adminhandler.New(adminSvc).Routes(api)

	r.GET("/ws", server.HandleWS)
	r.Static(global.Global.UploadBase, global.Global.UploadDir)

	addr := fmt.Sprintf(":%d", global.Global.Port)
	logger.Infof("[boot] listening on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Errorf("[boot] server stopped: %v", err)
	}
}
