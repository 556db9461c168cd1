/*
Package sampquery implements the client side of the SA-MP/open.mp query and
RCON protocol: liveness, server metadata, player rosters, rule sets and an
authenticated remote-console channel, all over a single connectionless UDP
association.
*/
package sampquery
