package api

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"carpsolver/internal/graph"
	"carpsolver/internal/model"
	"carpsolver/internal/opt"
)

const maxRequestWorkers = 64

func validateSolveRequest(req *model.SolveRequest, maxTermination time.Duration) error {
	if strings.TrimSpace(req.Instance) == "" {
		return fmt.Errorf("instance is required")
	}
	if req.TerminationSec < 0 {
		return fmt.Errorf("terminationSec must be >= 0")
	}
	if maxTermination > 0 && time.Duration(req.TerminationSec*float64(time.Second)) > maxTermination {
		return fmt.Errorf("terminationSec must be <= %v", maxTermination.Seconds())
	}
	if req.Workers < 0 || req.Workers > maxRequestWorkers {
		return fmt.Errorf("workers must be in [0,%d]", maxRequestWorkers)
	}
	if req.CallbackURL != "" {
		u, err := url.Parse(req.CallbackURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("callbackUrl must be an absolute http(s) URL")
		}
	}
	return nil
}

// unsolvable reports instance errors that parse cleanly but admit no search.
func unsolvable(err error) bool {
	return errors.Is(err, graph.ErrDisconnected) || errors.Is(err, graph.ErrVertexRange) ||
		errors.Is(err, graph.ErrNegativeCost) || errors.Is(err, opt.ErrTaskOverCapacity)
}
