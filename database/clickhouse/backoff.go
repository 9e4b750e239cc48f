package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/PavelAgarkov/halt-pkg/halt"
	"github.com/PavelAgarkov/halt-pkg/logger"
	logger "github.com/PavelAgarkov/halt-pkg/logger/zap_engine"
	"github.com/PavelAgarkov/halt-pkg/utils"
)

// PauseFor ставит remote на паузу и снимает её по истечении wait.
// Возвращает false, если пауза не наша: remote уже стоит (ручная пауза
// остаётся за оператором) или остановлен навсегда.
func PauseFor(ctx context.Context, remote halt.Remote, wait time.Duration) bool {
	if !remote.Pause() {
		return false
	}

	utils.GoRecover(ctx, func(ctx context.Context) {
		if err := utils.WaitOrCtx(ctx, wait); err != nil {
			return
		}
		if remote.Resume() {
			logger.WriteInfoLog(ctx, &logger_wrapper.LogEntry{
				Msg:       "backoff pause released",
				Component: "ClickhouseBackoff",
				Method:    "PauseFor",
				Args:      wait.String(),
				State:     remote.State().String(),
			})
		}
	})
	return true
}

// PauseOnBackpressure разбирает ошибку заливки. Если кластер просит подождать
// (квоты, too many parts и т.п.), конвейер ставится на паузу на подсказанное
// время и затем продолжает сам.
func PauseOnBackpressure(ctx context.Context, remote halt.Remote, err error) bool {
	need, wait, exc := NeedWait(err)
	if !need {
		return false
	}

	if !PauseFor(ctx, remote, wait) {
		return false
	}

	logger.WriteWarnLog(ctx, &logger_wrapper.LogEntry{
		Msg:       "pipeline paused on clickhouse backpressure",
		Component: "ClickhouseBackoff",
		Method:    "PauseOnBackpressure",
		Args:      fmt.Sprintf("code: %d, wait: %s", exc.Code, wait),
		State:     remote.State().String(),
		Error:     err,
	})
	return true
}
