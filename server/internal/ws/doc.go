// Package ws streams dashboard reports to browsers over WebSocket.
//
// Hub.ServeHTTP (mounted at /ws/stream) upgrades the connection and sends
// the current report at once, and Hub.Broadcast pushes it again right after
// a reload. Hub.Run sends a slim {"event":"tick","generation":N} every
// interval so clients can detect a missed reload. Before the first report
// is stored clients receive {"event":"waiting","generation":0}.
//
// Message format:
//
//	{
//	  "event":      "report",
//	  "generation": 3,
//	  "data":       { /* same schema as GET /api/v1/report */ }
//	}
package ws
