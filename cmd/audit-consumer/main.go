// Command audit-consumer drains the session and appointment queues into
// an append-only audit log.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/luizasposito/sheep-management-system/internal/config"
	"github.com/luizasposito/sheep-management-system/internal/queue"
)

func main() {
	envFiles := flag.StringSlice("env-file", nil, "dotenv file(s) to load before reading the environment")
	url := flag.String("url", "", "RabbitMQ URL (default $RABBITMQ_URL, then $AMQP_URL)")
	dir := flag.String("dir", "logs", "directory holding audit.log")
	flag.Parse()

	config.LoadEnvFiles(*envFiles...)
	if *url == "" {
		*url = config.AMQPURL(os.LookupEnv)
	}
	if *url == "" {
		log.Fatal("audit-consumer: no broker URL; set --url or RABBITMQ_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("audit-consumer: writing to %s", *dir)
	if err := queue.NewAuditConsumer(*url, *dir).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("audit-consumer: %v", err)
	}
	log.Printf("audit-consumer: stopped")
}
