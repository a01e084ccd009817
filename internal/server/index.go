package server

import "time"

const echoShutdownTimeout = 10 * time.Second

// indexHTML is the minimal landing page listing the API surface.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>bird-targets</title>
  <style>
    body { font-family: sans-serif; max-width: 42rem; margin: 2rem auto; padding: 0 1rem; }
    code { background: #f2f2f2; padding: 0.1rem 0.3rem; border-radius: 3px; }
  </style>
</head>
<body>
  <h1>bird-targets</h1>
  <p>Under-reported bird species for Durham County, NC.</p>
  <ul>
    <li><code>GET /targets</code> &mdash; ranked under-reported species (optional <code>?month=1..12</code>)</li>
    <li><code>GET /layers</code> &mdash; available map layers</li>
    <li><code>GET /layers/{name}</code> &mdash; a GeoJSON layer</li>
    <li><code>GET /dossiers/{species_code}</code> &mdash; species dossier (markdown)</li>
    <li><code>GET /healthz</code> &mdash; health check</li>
    <li><code>GET /metrics</code> &mdash; Prometheus metrics</li>
  </ul>
</body>
</html>
`
