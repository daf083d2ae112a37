// Package server hosts the components of a workspace over HTTP.
//
// Routes:
//
//	GET  /stores                          store definitions
//	GET  /stores/{id}                     store content (values, errors, status)
//	PUT  /stores/{id}/{property}          set a value (JSON body)
//	PUT  /stores/{id}/{property}/error    set or clear (null) an error object
//	PUT  /stores/{id}/{property}/status   set a loading status
//	GET  /components                      component names
//	GET  /components/{name}/state         derived state, ?only=a,b filters it
//	GET  /components/{name}/errors        derived error state
//	GET  /components/{name}/live          WebSocket stream of published states
//	POST /snapshots                       save a snapshot of every store
//	POST /snapshots/{name}/restore        restore a snapshot ("latest" allowed)
//	GET  /metrics                         Prometheus metrics
//
// Every store change made through the API notifies the mounted components,
// which push their new state to live clients.
package server
