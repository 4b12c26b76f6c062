package daemon

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/planwright/planwright/internal/engine"
	"github.com/planwright/planwright/internal/plan"
	"github.com/planwright/planwright/internal/scoring"
	"github.com/planwright/planwright/pkg/protocol"
)

const (
	codeInvalidParams = -32602
	codeInternal      = -32603
)

func rpcError(code int64, format string, args ...any) *jsonrpc2.Error {
	return &jsonrpc2.Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// handle dispatches one JSON-RPC request. Method handlers return plain
// Go values; jsonrpc2 does the envelope.
func (d *Daemon) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	log.Debug("rpc request", "method", req.Method)

	switch req.Method {
	case protocol.MethodGenerate:
		return d.handleGenerate(req)
	case protocol.MethodValidate:
		return d.handleValidate(req)
	case protocol.MethodRun:
		return d.handleRun(ctx, req)
	case protocol.MethodGetRun:
		return d.handleGetRun(req)
	case protocol.MethodListRuns:
		return d.handleListRuns(req)
	case protocol.MethodStatus:
		return d.handleStatus()
	case protocol.MethodShutdown:
		go d.Shutdown()
		return map[string]string{"status": "stopping"}, nil
	default:
		return nil, rpcError(jsonrpc2.CodeMethodNotFound, "unknown method %q", req.Method)
	}
}

func decodeParams[T any](req *jsonrpc2.Request) (*T, error) {
	var params T
	if req.Params == nil {
		return nil, rpcError(codeInvalidParams, "missing params")
	}
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return nil, rpcError(codeInvalidParams, "invalid params: %v", err)
	}
	return &params, nil
}

func decodeRequirements(raw json.RawMessage) (*plan.Requirements, error) {
	if len(raw) == 0 {
		return nil, rpcError(codeInvalidParams, "missing requirements")
	}
	var req plan.Requirements
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, rpcError(codeInvalidParams, "invalid requirements: %v", err)
	}
	if err := req.Validate(); err != nil {
		return nil, rpcError(codeInvalidParams, "%v", err)
	}
	return &req, nil
}

func (d *Daemon) handleGenerate(req *jsonrpc2.Request) (any, error) {
	params, err := decodeParams[protocol.GenerateParams](req)
	if err != nil {
		return nil, err
	}
	planReq, err := decodeRequirements(params.Requirements)
	if err != nil {
		return nil, err
	}

	var layouts []*plan.Layout
	if params.Variant != "" {
		found := false
		for _, v := range d.generator.Variants() {
			if v.Name == params.Variant {
				layout, err := d.generator.GenerateVariant(planReq, v)
				if err != nil {
					return nil, rpcError(codeInternal, "generate: %v", err)
				}
				layouts = append(layouts, layout)
				found = true
				break
			}
		}
		if !found {
			return nil, rpcError(codeInvalidParams, "unknown variant %q", params.Variant)
		}
	} else {
		layouts, err = d.generator.GenerateAll(planReq)
		if err != nil {
			return nil, rpcError(codeInternal, "generate: %v", err)
		}
	}

	result := &protocol.GenerateResult{}
	for _, l := range layouts {
		data, err := json.Marshal(l)
		if err != nil {
			return nil, rpcError(codeInternal, "encode layout: %v", err)
		}
		result.Layouts = append(result.Layouts, data)
	}
	return result, nil
}

func (d *Daemon) handleValidate(req *jsonrpc2.Request) (any, error) {
	params, err := decodeParams[protocol.ValidateParams](req)
	if err != nil {
		return nil, err
	}
	planReq, err := decodeRequirements(params.Requirements)
	if err != nil {
		return nil, err
	}
	layout, err := plan.DecodeLayout(params.Layout)
	if err != nil {
		return nil, rpcError(codeInvalidParams, "invalid layout: %v", err)
	}

	catalog, generation := d.watcher.CatalogGeneration()

	// The cache key covers the layout geometry, the requirements, and
	// the catalog reload generation; a catalog reload naturally misses.
	key := validateCacheKey(strconv.FormatUint(generation, 10), layout.Fingerprint(), params.Requirements)
	if cached, ok := d.cache.Get(key); ok {
		return encodeValidateResult(cached, true)
	}

	result := scoring.Score(layout, planReq, catalog, d.cfg.Engine.Scoring)
	d.cache.Add(key, result)
	return encodeValidateResult(result, false)
}

func validateCacheKey(catalogID, fingerprint string, reqJSON []byte) string {
	h := sha256.New()
	h.Write([]byte(catalogID))
	h.Write([]byte(fingerprint))
	h.Write(reqJSON)
	return hex.EncodeToString(h.Sum(nil))
}

func encodeValidateResult(res *scoring.Result, cached bool) (any, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return nil, rpcError(codeInternal, "encode result: %v", err)
	}
	return &protocol.ValidateResult{Result: data, Cached: cached}, nil
}

func (d *Daemon) handleRun(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	params, err := decodeParams[protocol.RunParams](req)
	if err != nil {
		return nil, err
	}
	planReq, err := decodeRequirements(params.Requirements)
	if err != nil {
		return nil, err
	}

	// A fresh engine per run picks up the current catalog.
	eng, err := engine.New(d.proposer, d.watcher.Catalog(), d.cfg.Engine)
	if err != nil {
		return nil, rpcError(codeInternal, "engine: %v", err)
	}

	runRes, err := eng.Run(ctx, planReq)
	if err != nil {
		return nil, rpcError(codeInternal, "run: %v", err)
	}

	result := &protocol.RunResult{}
	if params.Persist && d.runs != nil {
		id, err := d.runs.SaveRun(planReq, runRes)
		if err != nil {
			log.Error("failed to persist run", "error", err)
		} else {
			result.RunID = id
		}
	}

	data, err := json.Marshal(runRes)
	if err != nil {
		return nil, rpcError(codeInternal, "encode run result: %v", err)
	}
	result.Result = data
	return result, nil
}

func (d *Daemon) handleGetRun(req *jsonrpc2.Request) (any, error) {
	params, err := decodeParams[protocol.GetRunParams](req)
	if err != nil {
		return nil, err
	}
	if d.runs == nil {
		return nil, rpcError(codeInternal, "run persistence disabled")
	}

	rec, err := d.runs.GetRun(params.ID)
	if err != nil {
		return nil, rpcError(codeInternal, "get run: %v", err)
	}
	if rec == nil {
		return nil, rpcError(codeInvalidParams, "no run with id %d", params.ID)
	}
	return rec, nil
}

func (d *Daemon) handleListRuns(req *jsonrpc2.Request) (any, error) {
	params, err := decodeParams[protocol.ListRunsParams](req)
	if err != nil {
		return nil, err
	}
	if d.runs == nil {
		return nil, rpcError(codeInternal, "run persistence disabled")
	}

	recs, err := d.runs.ListRuns(params.Limit)
	if err != nil {
		return nil, rpcError(codeInternal, "list runs: %v", err)
	}

	result := &protocol.ListRunsResult{}
	for _, rec := range recs {
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, rpcError(codeInternal, "encode run: %v", err)
		}
		result.Runs = append(result.Runs, data)
	}
	return result, nil
}

func (d *Daemon) handleStatus() (any, error) {
	return &protocol.StatusResult{
		Version:       Version,
		UptimeSeconds: int64(d.Uptime().Seconds()),
		Jurisdiction:  d.watcher.Catalog().Jurisdiction,
		CacheEntries:  d.cache.Len(),
		RunsPersisted: d.runs != nil,
	}, nil
}
