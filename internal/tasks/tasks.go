package tasks

import (
	"context"
	"log"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/levishimwe/bookswap/internal/config"
	"github.com/levishimwe/bookswap/internal/services"
)

// TaskType defines the type of a background task.
const (
	TypeTokenSweep = "tokens:sweep"
)

// --- Task Client (Enqueuing tasks) ---

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of background tasks.
type TaskProcessor struct {
	cfg          *config.Config
	tokenService services.ITokenService
}

func NewTaskProcessor(cfg *config.Config, tokenService services.ITokenService) *TaskProcessor {
	return &TaskProcessor{
		cfg:          cfg,
		tokenService: tokenService,
	}
}

// HandleTokenSweepTask marks long-expired unused tokens as used. Tokens are
// retained (audit trail), only their hot used=false state is retired.
func (p *TaskProcessor) HandleTokenSweepTask(ctx context.Context, t *asynq.Task) error {
	swept, err := p.tokenService.SweepExpired(ctx, p.cfg.TokenSweepRetention)
	if err != nil {
		return err
	}
	if swept > 0 {
		log.Printf("Token sweep retired %d expired tokens", swept)
	}
	return nil
}

// SetupServer creates the asynq server for background task processing.
func SetupServer(rdb *redis.Client) *asynq.Server {
	return asynq.NewServer(redisOpt(rdb), asynq.Config{
		Concurrency: 1,
	})
}

// SetupMux registers the task handlers.
func SetupMux(processor *TaskProcessor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeTokenSweep, processor.HandleTokenSweepTask)
	return mux
}

// SetupScheduler creates the periodic schedule for recurring tasks.
func SetupScheduler(rdb *redis.Client) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt(rdb), nil)
	if _, err := scheduler.Register("@every 1h", asynq.NewTask(TypeTokenSweep, nil)); err != nil {
		return nil, err
	}
	return scheduler, nil
}
