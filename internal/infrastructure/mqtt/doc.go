// Package mqtt connects the bridge to an MQTT broker.
//
// It wraps github.com/eclipse/paho.mqtt.golang with:
//   - Last Will and Testament on {prefix}/system/status
//   - Input validation (topic, QoS, 1MB payload cap)
//   - Subscriptions restored after reconnect
//   - Panic recovery in message handlers
//
// # Topic tree
//
//	{prefix}/system/status                     retained online/offline
//	{prefix}/discovery/{component}/{key}       retained entity description
//	{prefix}/state/{key}                       retained current value
//	{prefix}/command/refresh                   request an immediate refresh
//	{prefix}/command/discover                  request a re-discovery
package mqtt
