package web

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Indodax Bot Dashboard</title>
<style>
  body { font-family: -apple-system, sans-serif; background: #0f1419; color: #e6e6e6; margin: 2em; }
  h1 { font-size: 1.4em; }
  .card { background: #1a2028; border-radius: 8px; padding: 1em 1.5em; margin: 1em 0; }
  .green { color: #4caf50; } .red { color: #ef5350; }
  table { width: 100%; border-collapse: collapse; }
  th, td { text-align: left; padding: 0.4em 0.8em; border-bottom: 1px solid #2a3038; }
</style>
</head>
<body>
<h1>🤖 Indodax Trading Bot</h1>
<div class="card" id="status">Connecting...</div>
<div class="card"><h3>Realized profit</h3><div id="profit"></div></div>
<div class="card"><h3>Recent trades</h3><table id="trades"></table></div>
<script>
function renderStatus(s) {
  const state = s.running ? '<span class="green">RUNNING</span>' : '<span class="red">STOPPED</span>';
  const bal = s.idr_balance >= 0 ? s.idr_balance.toLocaleString() + ' IDR' : 'n/a';
  document.getElementById('status').innerHTML =
    'Engine: ' + state + ' | Signal: <b>' + s.signal + '</b>' +
    ' | Cycle: ' + s.cycle_result + ' | Open positions: ' + s.positions +
    ' | Balance: ' + bal;
}
function refresh() {
  fetch('/api/profit').then(r => r.json()).then(rows => {
    document.getElementById('profit').innerHTML = (rows || []).map(p =>
      p.pair.toUpperCase() + ': <b class="' + (p.total_realized_profit >= 0 ? 'green' : 'red') + '">' +
      p.total_realized_profit.toFixed(2) + ' IDR</b>').join('<br>') || 'No realized trades yet';
  });
  fetch('/api/trades').then(r => r.json()).then(rows => {
    let html = '<tr><th>Time</th><th>Side</th><th>Price</th><th>Qty</th><th>P/L</th></tr>';
    (rows || []).forEach(t => {
      html += '<tr><td>' + new Date(t.timestamp * 1000).toLocaleString() + '</td><td>' +
        t.side.toUpperCase() + '</td><td>' + t.price.toLocaleString() + '</td><td>' +
        t.quantity.toFixed(8) + '</td><td>' +
        (t.profit_loss != null ? t.profit_loss.toFixed(2) : '-') + '</td></tr>';
    });
    document.getElementById('trades').innerHTML = html;
  });
}
const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
ws.onmessage = e => renderStatus(JSON.parse(e.data));
ws.onerror = () => setInterval(() => fetch('/api/status').then(r => r.json()).then(renderStatus), 5000);
refresh();
setInterval(refresh, 15000);
</script>
</body>
</html>`
