package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"Pointage/config"
	"Pointage/pkg/logger"
	"Pointage/pkg/token"
)

// 为员工签发 access / refresh token，用于本地联调
//
//	go run ./cmd/token -worker 42
func main() {
	workerID := flag.Int64("worker", 0, "worker id written to the uid claim")
	flag.Parse()

	if err := config.Load(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Init()
	defer logger.Sync()

	if *workerID <= 0 {
		logger.Logger.Fatal("Worker id must be positive", zap.Int64("worker", *workerID))
	}

	if err := token.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize token package", zap.Error(err))
	}

	access, refresh, expiresIn, err := token.GenerateTokenPair(strconv.FormatInt(*workerID, 10))
	if err != nil {
		logger.Logger.Fatal("Failed to generate token", zap.Error(err))
	}

	fmt.Printf("access_token=%s\nrefresh_token=%s\nexpires_in=%d\n", access, refresh, expiresIn)
}
