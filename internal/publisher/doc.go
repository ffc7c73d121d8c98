// Package publisher exposes bridge resources over MQTT.
//
// After each discovery it publishes a retained configuration document per
// resource; after each refresh it publishes the changed values as retained
// state messages. It also listens for refresh and discover commands.
//
// Topic layout (prefix "febos"):
//
//	febos/discovery/{sensor|binary_sensor}/{key}   entity configuration
//	febos/state/{key}                              {"key","value","timestamp"}
//	febos/system/status                            online/offline (LWT)
//	febos/command/refresh                          run a refresh now
//	febos/command/discover                         rediscover the topology
package publisher
