package live

// clientScript applies wire messages to the page. It is served at /live.js.
const clientScript = `(function () {
  var scheme = location.protocol === "https:" ? "wss://" : "ws://";

  function parse(html) {
    var t = document.createElement("template");
    t.innerHTML = html;
    return t.content.firstElementChild;
  }

  function child(parent, id) {
    return parent.querySelector(':scope > [data-id="' + CSS.escape(id) + '"]');
  }

  function apply(m) {
    var parent = document.getElementById(m.parent || "items");
    switch (m.op) {
    case "reset":
      var fresh = parse(m.html);
      var current = fresh && document.getElementById(fresh.id);
      if (current) current.replaceWith(fresh);
      break;
    case "insert":
      parent.insertBefore(parse(m.html), m.ref ? child(parent, m.ref) : null);
      break;
    case "remove":
      var gone = child(parent, m.id);
      if (gone) gone.remove();
      break;
    case "replace":
      var old = child(parent, m.old);
      if (old) old.replaceWith(parse(m.html));
      break;
    }
    var title = document.getElementById("title");
    if (title) document.title = title.textContent;
  }

  function connect() {
    var ws = new WebSocket(scheme + location.host + "/ws");
    ws.onmessage = function (e) { apply(JSON.parse(e.data)); };
    ws.onclose = function () { setTimeout(connect, 1000); };
  }

  connect();
})();
`
