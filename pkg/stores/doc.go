// Package stores persists lifecycle runs and resolution history in SQLite.
//
// HistoryStore is both a track.Recorder and a lifecycle component: the
// database opens and migrates during initialization and closes during
// shutdown. Recording never surfaces errors to the operation that
// produced the record; failed writes are logged and dropped.
package stores
