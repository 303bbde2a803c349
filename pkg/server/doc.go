// Package server implements the airset inspector, an HTTP API for looking at
// and editing named stores while a program runs.
//
// Routes:
//
//	GET  /healthz              liveness and store count
//	GET  /stores               registered stores with update counts
//	GET  /stores/{name}        current data as JSON
//	PUT  /stores/{name}        merge a JSON document into the store
//	GET  /stores/{name}/diff   paths changed by the last commit
//	GET  /stores/{name}/watch  WebSocket stream of commits
//	GET  /metrics              Prometheus metrics, unless disabled
//
// A PUT runs as a single task of the store (see Store.Run), so it waits for
// runs already queued and passes through the store's middleware. It responds
// with whether the document changed the store and the paths that changed. Because the merge keeps unchanged subtrees, a client that
// re-sends what it read gets changed=false and the store is left alone.
//
// Usage:
//
//	insp := server.New(server.DefaultConfig().WithAddress(":7070"))
//	insp.Register("session", sessionStore)
//	go insp.ListenAndServe(ctx)
//
// The handler can also be mounted into an existing router:
//
//	r := chi.NewRouter()
//	r.Mount("/debug/airset", insp.Handler())
package server
