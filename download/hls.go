package download

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/floostack/transcoder/ffmpeg"
	"github.com/super-dl/super-dl/models"
)

// downloadHLS pulls an HLS playlist and remuxes it into an mp4 container
// using ffmpeg (stream copy, no re-encode). ffmpeg owns the segment
// fetching; we only watch progress and validate the output.
func (d *Downloader) downloadHLS(ctx context.Context, ref *models.MediaReference, outputPath string) (*models.DownloadOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	ffmpegCfg := &ffmpeg.Config{
		FfmpegBinPath:   d.cfg.FfmpegBin,
		FfprobeBinPath:  d.cfg.FfprobeBin,
		ProgressEnabled: true,
	}

	copyCodec := "copy"
	format := "mp4"
	opts := ffmpeg.Options{
		VideoCodec:   &copyCodec,
		AudioCodec:   &copyCodec,
		OutputFormat: &format,
	}

	progress, err := ffmpeg.
		New(ffmpegCfg).
		Input(ref.URL).
		Output(outputPath).
		WithContext(&ctx).
		Start(opts)
	if err != nil {
		// Remove whatever ffmpeg managed to write before failing.
		_ = os.Remove(outputPath)
		return nil, models.NewDownloadError(models.ErrCodeNetwork,
			fmt.Sprintf("hls remux of %s failed", ref.URL), err)
	}

	for p := range progress {
		slog.Debug("hls remux progress", "progress", p.GetProgress(), "size", p.GetCurrentBitrate())
	}

	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(outputPath)
		return nil, models.NewDownloadError(models.ErrCodeIO,
			fmt.Sprintf("hls remux produced no output at %s", outputPath), err)
	}

	return &models.DownloadOutcome{
		BytesWritten: info.Size(),
		OutputPath:   outputPath,
		MediaURL:     ref.URL,
	}, nil
}
