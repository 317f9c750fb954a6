// Package mqtt connects the coordinator to an MQTT broker.
//
// The broker is optional. When enabled the coordinator publishes:
//
//	{prefix}/system/status         online/offline, retained, with LWT
//	{prefix}/session/{sessionId}   latest session copy, retained
//	{prefix}/command/{action}      one event per executed command
//
// and accepts commands on {prefix}/request, answering on
// {prefix}/response/{requestId} (see package mqttrelay).
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
// Subscriptions are restored automatically after a reconnect.
package mqtt
