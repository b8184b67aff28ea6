package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mgpai22/sublens/internal/jobs"
	"github.com/mgpai22/sublens/internal/pipeline"
	"github.com/mgpai22/sublens/internal/storage"
	"github.com/mgpai22/sublens/internal/video"
)

type uploadResponse struct {
	Filename string  `json:"filename"`
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
}

type extractRequest struct {
	Filename      string           `json:"filename"`
	StartTime     float64          `json:"start_time"`
	EndTime       *float64         `json:"end_time"`
	FrameInterval *float64         `json:"frame_interval"`
	ROI           *pipeline.Region `json:"roi"`
}

type extractResponse struct {
	Success        bool     `json:"success"`
	SRTContent     *string  `json:"srt_content"`
	ProcessingTime *float64 `json:"processing_time"`
	Error          *string  `json:"error"`
}

type jobView struct {
	ID                string  `json:"id"`
	SourcePath        string  `json:"source_path"`
	Origin            string  `json:"origin"`
	Status            string  `json:"status"`
	Region            string  `json:"region,omitempty"`
	FrameInterval     float64 `json:"frame_interval"`
	SampledFrames     int     `json:"sampled_frames"`
	SkippedFrames     int     `json:"skipped_frames"`
	Entries           int     `json:"entries"`
	OutputPath        string  `json:"output_path,omitempty"`
	Error             string  `json:"error,omitempty"`
	ProcessingSeconds float64 `json:"processing_seconds"`
	CreatedAt         string  `json:"created_at"`
	FinishedAt        string  `json:"finished_at,omitempty"`
}

type jobListResponse struct {
	Jobs []jobView `json:"jobs"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": "sublens API",
		"version": s.opts.Version,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeDetail(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	s.logger.Infow("upload received", "filename", header.Filename, "content_type", contentType)
	if contentType != "" && !strings.HasPrefix(contentType, "video/") {
		s.logger.Warnw("rejected upload", "content_type", contentType)
		s.writeDetail(w, http.StatusBadRequest, "Only video files are allowed")
		return
	}

	name, path, err := s.uploads.Save(header.Filename, file)
	if err != nil {
		s.logger.Errorw("failed to store upload", "error", err)
		s.writeDetail(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	meta, err := s.probe(r.Context(), path)
	if err != nil {
		s.logger.Warnw("uploaded file is not a readable video", "filename", name, "error", err)
		_ = s.uploads.Remove(name)
		s.writeDetail(w, http.StatusBadRequest, "Could not read video metadata")
		return
	}

	s.logger.Infow("upload stored",
		"filename", name,
		"duration", meta.Duration(),
		"width", meta.Width,
		"height", meta.Height,
	)
	s.writeJSON(w, http.StatusOK, uploadResponse{
		Filename: name,
		Duration: meta.Duration(),
		Width:    meta.Width,
		Height:   meta.Height,
	})
}

func (s *Server) probe(ctx context.Context, path string) (video.Metadata, error) {
	src, err := s.extractor.Decoder.Open(ctx, path)
	if err != nil {
		return video.Metadata{}, err
	}
	defer src.Close()
	return src.Metadata(), nil
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var body extractRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeDetail(w, http.StatusUnprocessableEntity, "invalid JSON body")
		return
	}
	if body.Filename == "" || body.ROI == nil {
		s.writeDetail(w, http.StatusUnprocessableEntity, "filename and roi are required")
		return
	}

	s.logger.Infow("extract request",
		"filename", body.Filename,
		"start_time", body.StartTime,
		"end_time", body.EndTime,
		"frame_interval", body.FrameInterval,
		"roi", body.ROI.String(),
	)

	path, err := s.uploads.Resolve(body.Filename)
	if err != nil {
		s.logger.Warnw("video not found", "filename", body.Filename, "error", err)
		s.writeJSON(w, http.StatusOK, failure("Video file not found"))
		return
	}

	req := s.opts.Defaults
	req.Path = path
	req.Start = body.StartTime
	req.Region = *body.ROI
	req.Interval = 1.0
	if body.FrameInterval != nil {
		req.Interval = *body.FrameInterval
	}
	// an end_time of 0 means the whole video
	req.End = nil
	if body.EndTime != nil && *body.EndTime != 0 {
		end := *body.EndTime
		req.End = &end
	}

	jobID := s.recorder.Start(r.Context(), path, jobs.OriginServer, req.Region.String(), req.Interval)
	res, err := s.extractor.Extract(r.Context(), req)
	if err != nil {
		s.recorder.Finish(r.Context(), jobID, jobs.Outcome{}, err)
		s.logger.Errorw("extraction failed", "filename", body.Filename, "error", err)
		s.writeJSON(w, http.StatusOK, failure(err.Error()))
		return
	}

	seconds := roundTo2(res.ProcessingTime.Seconds())
	s.recorder.Finish(r.Context(), jobID, jobs.Outcome{
		SampledFrames:     res.Sampled,
		SkippedFrames:     len(res.Skips),
		Entries:           len(res.Entries),
		ProcessingSeconds: seconds,
	}, nil)

	s.writeJSON(w, http.StatusOK, extractResponse{
		Success:        true,
		SRTContent:     &res.SRT,
		ProcessingTime: &seconds,
	})
}

func failure(message string) extractResponse {
	return extractResponse{Success: false, Error: &message}
}

// roundTo2 rounds like the decimal formatter: exact ties go to the even digit.
func roundTo2(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return r
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	path, err := s.uploads.Resolve(name)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) && !errors.Is(err, storage.ErrInvalidName) {
			s.logger.Warnw("failed to resolve video", "filename", name, "error", err)
		}
		s.writeDetail(w, http.StatusNotFound, "Video not found")
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		s.writeJSON(w, http.StatusOK, jobListResponse{Jobs: []jobView{}})
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	list, err := s.jobs.List(r.Context(), limit)
	if err != nil {
		s.writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	views := make([]jobView, 0, len(list))
	for _, job := range list {
		views = append(views, toJobView(job))
	}
	s.writeJSON(w, http.StatusOK, jobListResponse{Jobs: views})
}

func toJobView(job *jobs.Job) jobView {
	view := jobView{
		ID:                job.ID,
		SourcePath:        job.SourcePath,
		Origin:            string(job.Origin),
		Status:            string(job.Status),
		Region:            job.Region,
		FrameInterval:     job.FrameInterval,
		SampledFrames:     job.SampledFrames,
		SkippedFrames:     job.SkippedFrames,
		Entries:           job.Entries,
		OutputPath:        job.OutputPath,
		Error:             job.ErrorMessage,
		ProcessingSeconds: job.ProcessingSeconds,
		CreatedAt:         job.CreatedAt.Format(time.RFC3339),
	}
	if !job.FinishedAt.IsZero() {
		view.FinishedAt = job.FinishedAt.Format(time.RFC3339)
	}
	return view
}
