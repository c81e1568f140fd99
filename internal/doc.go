// Package internal contains the implementation packages of exhibit.
//
// # Package Organization
//
//   - options: layered option values and their resolution into structs
//   - lifecycle: the state machine shared by editors and exhibitions
//   - document: the HTML document editors alter
//   - blob: the in-memory store serving composed documents by URL
//   - preview: the composer running alterers and publishing to a surface
//   - compiler: the typescript compiler service and its retry protocol
//   - editor: editors, their surfaces and front matter
//   - exhibition: the orchestrator tying editors to one preview
//   - websocket: the hub carrying updates to browsers and events back
//   - watcher: debounced file system notifications
//   - server: the HTTP surface over all of the above
//   - config, logging, errors, validation, version: ambient support
//
// # Inter-Package Communication
//
//   - Editors contribute alterers to an exhibition's composer
//   - The composer publishes each document to the blob store and hands its
//     URL to the surface
//   - The server's surfaces forward sources and heights over the websocket
//   - Watcher notifications and websocket events trigger preview updates
//
// # Testing Strategy
//
// Unit tests sit beside each package and use testify. Property tests use
// gopter and run with -tags property.
package internal
