package main

import (
	"context"
	"time"

	"VaultLane/internal/biz"
	pkglog "VaultLane/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

// defaultReportSpec 每 5 分钟输出一次凭证池报告（秒 分 时 日 月 周）
const defaultReportSpec = "0 */5 * * * *"

// NewVaultReportCron 创建凭证池报告定时任务，返回的 Cron 尚未启动
// spec 为空时使用 defaultReportSpec；表达式非法时返回错误
func NewVaultReportCron(monitor *biz.VaultMonitor, spec string, logger log.Logger) (*cron.Cron, error) {
	helper := pkglog.NewLogHelper(logger)

	if spec == "" {
		spec = defaultReportSpec
	}

	c := cron.New(cron.WithSeconds())

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		monitor.LogReport(ctx)
	})
	if err != nil {
		helper.Errorw("msg", "failed to register vault report cron job", "spec", spec, "error", err)
		return nil, err
	}

	helper.Scheduler("Vault report cron job registered", "spec", spec)
	return c, nil
}
