package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/park285/castle-blotto/pkg/blottoclient"
	"github.com/park285/castle-blotto/pkg/blottodto"
	"github.com/valyala/fasthttp"
)

func main() {
	baseURL := strings.TrimRight(os.Getenv("BLOTTO_BASE_URL"), "/")
	name := os.Getenv("BLOTTO_NAME")
	move := os.Getenv("BLOTTO_MOVE")

	if baseURL == "" {
		log.Fatal("BLOTTO_BASE_URL is required")
	}
	if name == "" {
		name = "blottocheck"
	}

	status, body, err := fasthttp.GetTimeout(nil, baseURL+"/healthz", 5*time.Second)
	if err != nil {
		log.Printf("/healthz error: %v", err)
	} else {
		log.Printf("/healthz status=%d body=%s", status, strings.TrimSpace(string(body)))
	}

	wsURL := os.Getenv("BLOTTO_WS_URL")
	if wsURL == "" {
		wsURL = "ws" + strings.TrimPrefix(baseURL, "http") + "/ws"
	}
	allocation, err := parseMove(move)
	if err != nil {
		log.Fatalf("BLOTTO_MOVE: %v", err)
	}

	ws := blottoclient.New(wsURL)
	ws.OnStateChange(func(state blottoclient.State) {
		log.Printf("WS state: %s", state)
	})
	ws.OnFrame(func(env blottodto.Envelope) {
		fmt.Printf("WS frame type=%s data=%s\n", env.Type, string(env.Data))
		if env.Type == blottodto.TypeRoundStarted && allocation != nil {
			if err := ws.SubmitMove(context.Background(), allocation); err != nil {
				log.Printf("submit error: %v", err)
			}
		}
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}
	if err := ws.Join(cctx, name); err != nil {
		log.Printf("join error: %v", err)
	}

	// Observe for a short window
	t := time.NewTimer(10 * time.Second)
	<-t.C

	_ = ws.Leave(context.Background())
	_ = ws.Close(context.Background())
}

func parseMove(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid unit count %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}
