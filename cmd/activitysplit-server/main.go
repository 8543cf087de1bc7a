// Command activitysplit-server exposes the splitter over HTTP: POST a
// legacy activity HTML export to /split and get back a report of the
// chunk files that were written under the configured output root.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/takeoutkit/activitysplit"
	"github.com/takeoutkit/activitysplit/chunk"
	"github.com/takeoutkit/activitysplit/segment"
)

func newRouter(outputRoot string, logger *slog.Logger) *gin.Engine {
	ginEngine := gin.Default()
	ginEngine.GET("/healthz", func(ctx *gin.Context) {
		ctx.Status(http.StatusOK)
	})
	ginEngine.POST("/split", func(ctx *gin.Context) {
		count := chunk.DefaultRecordsPerFile
		if raw := ctx.Query("count"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "count must be a number"})
				return
			}
			count = parsed
		}

		// Validate the configuration before touching the filesystem so
		// a bad request leaves no empty directory behind.
		outDir := filepath.Join(outputRoot, fmt.Sprintf("split-%d", time.Now().UnixNano()))
		writer, err := chunk.NewWriter(outDir, chunk.WithRecordsPerFile(count))
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := os.MkdirAll(outDir, 0755); err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		records, err := activitysplit.Split(ctx.Request.Context(), segment.New(ctx.Request.Body), writer)
		if closeErr := writer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			logger.Error("failed to split uploaded export", "error", err)
			ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}

		ctx.JSON(http.StatusOK, gin.H{
			"dir":     outDir,
			"records": records,
			"files":   writer.Written(),
		})
	})

	return ginEngine
}

func main() {
	var listen string
	var outputRoot string
	flag.StringVar(&listen, "listen", ":8080", "address to listen on")
	flag.StringVar(&outputRoot, "output", ".", "root directory where split results are written")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ginEngine := newRouter(outputRoot, logger)

	logger.Info("starting split server", "listen", listen, "output", outputRoot)
	if err := ginEngine.Run(listen); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
