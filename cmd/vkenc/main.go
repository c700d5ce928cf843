/*
DESCRIPTION
  vkenc is a file-output encode harness for the vkvideo encoder. It
  drives the encode pipeline over a chosen driver backend, writes the
  produced bitstream through a pool buffer to a file, and watches a
  configuration file for control variable changes which are applied at
  the next group boundary.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2025 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main provides the vkenc encode harness.
package main

import (
	"bufio"
	"flag"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/ausocean/utils/pool"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/vkvideo/encoder"
	"github.com/ausocean/vkvideo/encoder/config"
	"github.com/ausocean/vkvideo/vulkan"
	"github.com/ausocean/vkvideo/vulkan/vktest"
)

// Logging configuration.
const (
	logPath      = "/var/log/vkenc/vkenc.log"
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

// Pool buffer configuration.
const (
	poolCapacity    = 50000000 // 50MB.
	poolElementSize = 100000   // Bytes.
	poolTimeout     = 5 * time.Second
)

func init() {
	vulkan.RegisterBackend("test", func() (vulkan.Backend, error) {
		return vktest.New(), nil
	})
}

func main() {
	var (
		backendName = flag.String("backend", "test", "driver backend to use")
		codec       = flag.String("codec", config.CodecH264, "output codec, h264 or h265")
		width       = flag.Uint("width", 1280, "frame width in luma samples")
		height      = flag.Uint("height", 720, "frame height in luma samples")
		fps         = flag.Uint("fps", 30, "frame rate")
		frames      = flag.Uint("frames", 300, "number of frames to encode")
		outPath     = flag.String("out", "out.264", "output bitstream file")
		confPath    = flag.String("conf", "", "control variable file to watch")
		verbosity   = flag.Int("verbosity", int(logVerbosity), "logging verbosity")
	)
	flag.Parse()

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(int8(*verbosity), io.MultiWriter(fileLog, os.Stderr), logSuppress)
	log.Info("starting vkenc")

	backend, err := vulkan.OpenBackend(*backendName)
	if err != nil {
		log.Fatal("could not open backend", "error", err.Error())
	}

	out, err := os.Create(*outPath)
	if err != nil {
		log.Fatal("could not create output file", "error", err.Error())
	}
	defer out.Close()

	pb := pool.NewBuffer(poolCapacity/poolElementSize, poolElementSize, poolTimeout)
	var wg sync.WaitGroup
	done := make(chan struct{})
	wg.Add(1)
	go writeOut(pb, out, log, done, &wg)

	cfg := config.DefaultConfig(log, *width, *height)
	cfg.Codec = *codec
	cfg.FrameRateNum = *fps
	cfg.FrameRateDen = 1

	enc, err := encoder.New(cfg, backend, func(o encoder.Output) {
		if o.Err != nil {
			log.Error("frame failed", "systemFrameNumber", int(o.SystemFrameNumber), "error", o.Err.Error())
			return
		}
		_, err := pb.Write(o.Data)
		if err != nil {
			log.Error("could not buffer output", "error", err.Error())
		}
	})
	if err != nil {
		log.Fatal("could not create encoder", "error", err.Error())
	}
	if err := enc.Start(); err != nil {
		log.Fatal("could not start encoder", "error", err.Error())
	}

	if *confPath != "" {
		go watchConf(*confPath, enc, log)
	}

	for i := uint(0); i < *frames; i++ {
		img, err := backend.CreateImage(vulkan.FormatG8B8R82Plane420Unorm,
			vulkan.Extent2D{Width: uint32(*width), Height: uint32(*height)},
			vulkan.ImageUsageVideoEncodeSrc)
		if err != nil {
			log.Error("could not create input image", "error", err.Error())
			break
		}
		if err := enc.Push(img, false, nil); err != nil {
			log.Error("could not push frame", "error", err.Error())
			break
		}
	}

	if err := enc.Flush(); err != nil {
		log.Error("could not flush encoder", "error", err.Error())
	}
	if err := enc.Stop(); err != nil {
		log.Error("could not stop encoder", "error", err.Error())
	}

	close(done)
	wg.Wait()
	log.Info("vkenc finished")
}

// writeOut drains the pool buffer into dst until done closes and the
// buffer empties.
func writeOut(pb *pool.Buffer, dst io.Writer, log logging.Logger, done chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		chunk, err := pb.Next(poolTimeout)
		switch err {
		case nil:
		case pool.ErrTimeout, io.EOF:
			select {
			case <-done:
				return
			default:
				continue
			}
		default:
			log.Error("unexpected error from pool buffer", "error", err.Error())
			continue
		}
		if _, err := dst.Write(chunk.Bytes()); err != nil {
			log.Error("could not write output", "error", err.Error())
		}
		chunk.Close()
	}
}

// watchConf watches the control variable file and stages changed
// variables on the encoder; they take effect at the next group
// boundary.
func watchConf(path string, enc *encoder.Encoder, log logging.Logger) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Error("could not create watcher", "error", err.Error())
		return
	}
	defer w.Close()
	if err := w.Add(path); err != nil {
		log.Error("could not watch conf file", "error", err.Error())
		return
	}
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			vars, err := readConf(path)
			if err != nil {
				log.Error("could not read conf file", "error", err.Error())
				continue
			}
			if err := enc.Update(vars); err != nil {
				log.Error("could not stage config update", "error", err.Error())
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Error("watcher error", "error", err.Error())
		}
	}
}

// readConf parses a control variable file of Key=Value lines.
func readConf(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vars := make(map[string]string)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		vars[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return vars, sc.Err()
}
