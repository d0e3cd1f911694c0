package app

import (
	"errors"
	"fmt"

	"github.com/skill-exchange/internal/config"
	"github.com/skill-exchange/internal/provider"
	"github.com/skill-exchange/internal/router"
	"github.com/skill-exchange/internal/worker"
)

// BuildRunner 按启动模式组装 HTTP 与 Worker 服务
func BuildRunner(cfg *config.Config, container *provider.Container, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if container == nil {
		return nil, errors.New("container is nil")
	}
	if !isValidMode(mode) {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}

	var services []Service

	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(cfg.Server.Addr(), engine))
	}

	// 队列未启用时 all 模式只跑 HTTP，worker 模式直接报错
	if mode == ModeAll || mode == ModeWorker {
		if cfg.Queue.Enabled {
			workerService, err := worker.NewService(&cfg.Queue, worker.NewConsumer(container))
			if err != nil {
				return nil, err
			}
			services = append(services, workerService)
		} else if mode == ModeWorker {
			return nil, errors.New("worker mode requires queue.enabled")
		}
	}

	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}
	return NewRunner(services...), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}
	if opts.DB == nil {
		return errors.New("db is nil")
	}

	container, err := provider.NewContainer(opts.Config, opts.DB)
	if err != nil {
		return err
	}
	defer container.Close()

	if err := container.GrantAdmin(opts.AdminUserID); err != nil {
		opts.Logger.Warnw("app_grant_admin_failed", "user_id", opts.AdminUserID, "error", err)
	}

	runner, err := BuildRunner(opts.Config, container, opts.Mode)
	if err != nil {
		return err
	}

	opts.Logger.Infow("app_start", "addr", opts.Config.Server.Addr(), "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
