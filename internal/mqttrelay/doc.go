// Package mqttrelay connects the dispatcher to the MQTT bus.
//
// Relay is a dispatch.Observer that republishes every command as an event
// and every touched session as a retained message. Listener executes
// commands that arrive on the request topic and publishes the reply.
package mqttrelay
